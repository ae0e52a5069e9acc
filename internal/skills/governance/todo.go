package governance

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// TodoTool handles the read_todo and update_todo tools.
type TodoTool struct {
	store *FileStore
}

// NewTodoTool creates a TodoTool with its dependencies.
func NewTodoTool(store *FileStore) *TodoTool {
	return &TodoTool{store: store}
}

// ReadDefinition returns the read_todo tool definition.
func (t *TodoTool) ReadDefinition() mcp.Tool {
	return mcp.NewTool("read_todo",
		mcp.WithDescription(
			"Read the project's TODO list (governance/TODO.md). "+
				"Returns the full markdown content including checked and unchecked items.",
		),
	)
}

// UpdateDefinition returns the update_todo tool definition.
func (t *TodoTool) UpdateDefinition() mcp.Tool {
	return mcp.NewTool("update_todo",
		mcp.WithDescription(
			"Update the project's TODO list. "+
				"Supports adding a new item, checking/unchecking an existing item, "+
				"and removing an item. Items are matched by substring.",
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("What to do with the item."),
			mcp.Enum("add", "check", "uncheck", "remove"),
		),
		mcp.WithString("item",
			mcp.Required(),
			mcp.Description(
				"For 'add': the item text. For the other actions: text that "+
					"uniquely identifies an existing item (substring match).",
			),
		),
	)
}

// HandleRead processes a read_todo call. It returns the raw markdown as
// a plain string; the router wraps it as a text content block.
func (t *TodoTool) HandleRead(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	content, err := t.store.ReadTodo()
	if err != nil {
		return nil, fmt.Errorf("reading TODO: %w", err)
	}
	return content, nil
}

// HandleUpdate processes an update_todo call.
func (t *TodoTool) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	action := req.GetString("action", "")
	item := strings.TrimSpace(req.GetString("item", ""))
	if item == "" {
		return errorResult("item must not be blank"), nil
	}

	content, err := t.store.ReadTodo()
	if err != nil {
		return nil, fmt.Errorf("reading TODO: %w", err)
	}

	var updated string
	switch action {
	case "add":
		updated = addItem(content, item)
	case "check":
		updated, err = setChecked(content, item, true)
	case "uncheck":
		updated, err = setChecked(content, item, false)
	case "remove":
		updated, err = removeItem(content, item)
	default:
		return errorResult(fmt.Sprintf("unknown action: %s", action)), nil
	}
	if err != nil {
		return errorResult(err.Error()), nil
	}

	if err := t.store.WriteTodo(updated); err != nil {
		return nil, fmt.Errorf("writing TODO: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("TODO updated: %s %q", action, item)), nil
}

// addItem appends an unchecked item at the end of the list.
func addItem(content, item string) string {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + fmt.Sprintf("- [ ] %s\n", item)
}

// setChecked flips the checkbox of the single item matching the given
// substring.
func setChecked(content, match string, checked bool) (string, error) {
	lines := strings.Split(content, "\n")
	idx, err := findItem(lines, match)
	if err != nil {
		return "", err
	}

	line := lines[idx]
	if checked {
		line = strings.Replace(line, "- [ ]", "- [x]", 1)
	} else {
		line = strings.Replace(line, "- [x]", "- [ ]", 1)
		line = strings.Replace(line, "- [X]", "- [ ]", 1)
	}
	lines[idx] = line
	return strings.Join(lines, "\n"), nil
}

// removeItem deletes the single item matching the given substring.
func removeItem(content, match string) (string, error) {
	lines := strings.Split(content, "\n")
	idx, err := findItem(lines, match)
	if err != nil {
		return "", err
	}
	return strings.Join(append(lines[:idx], lines[idx+1:]...), "\n"), nil
}

// findItem locates exactly one checkbox line containing match.
// Zero matches and multiple matches are both errors, so an ambiguous
// request never silently edits the wrong item.
func findItem(lines []string, match string) (int, error) {
	found := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "- [") {
			continue
		}
		if !strings.Contains(trimmed, match) {
			continue
		}
		if found != -1 {
			return 0, fmt.Errorf("multiple TODO items match %q, be more specific", match)
		}
		found = i
	}
	if found == -1 {
		return 0, fmt.Errorf("no TODO item matches %q", match)
	}
	return found, nil
}
