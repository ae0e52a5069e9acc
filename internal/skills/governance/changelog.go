package governance

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// unreleasedHeading marks the section new entries go under.
const unreleasedHeading = "## [Unreleased]"

// categoryHeadings maps the entry type argument to the Keep-a-Changelog
// subsection heading.
var categoryHeadings = map[string]string{
	"added":      "### Added",
	"changed":    "### Changed",
	"fixed":      "### Fixed",
	"removed":    "### Removed",
	"deprecated": "### Deprecated",
	"security":   "### Security",
}

// ChangelogTool handles the read_changelog and add_changelog_entry tools.
type ChangelogTool struct {
	store *FileStore
}

// NewChangelogTool creates a ChangelogTool with its dependencies.
func NewChangelogTool(store *FileStore) *ChangelogTool {
	return &ChangelogTool{store: store}
}

// ReadDefinition returns the read_changelog tool definition.
func (t *ChangelogTool) ReadDefinition() mcp.Tool {
	return mcp.NewTool("read_changelog",
		mcp.WithDescription(
			"Read the project changelog (governance/CHANGELOG.md). "+
				"Returns the full markdown content.",
		),
	)
}

// AddDefinition returns the add_changelog_entry tool definition.
func (t *ChangelogTool) AddDefinition() mcp.Tool {
	return mcp.NewTool("add_changelog_entry",
		mcp.WithDescription(
			"Add an entry to the Unreleased section of the changelog, "+
				"under the subsection for its type (Added, Changed, Fixed, ...). "+
				"Missing subsections are created.",
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("The kind of change."),
			mcp.Enum("added", "changed", "fixed", "removed", "deprecated", "security"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("One-line description of the change."),
		),
	)
}

// HandleRead processes a read_changelog call.
func (t *ChangelogTool) HandleRead(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	content, err := t.store.ReadChangelog()
	if err != nil {
		return nil, fmt.Errorf("reading changelog: %w", err)
	}
	return content, nil
}

// HandleAdd processes an add_changelog_entry call.
func (t *ChangelogTool) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	entryType := req.GetString("type", "")
	description := strings.TrimSpace(req.GetString("description", ""))
	if description == "" {
		return errorResult("description must not be blank"), nil
	}
	heading, ok := categoryHeadings[entryType]
	if !ok {
		return errorResult(fmt.Sprintf("unknown entry type: %s", entryType)), nil
	}

	content, err := t.store.ReadChangelog()
	if err != nil {
		return nil, fmt.Errorf("reading changelog: %w", err)
	}

	updated, err := insertEntry(content, heading, description)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	if err := t.store.WriteChangelog(updated); err != nil {
		return nil, fmt.Errorf("writing changelog: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Changelog entry added under %s: %s",
		strings.TrimPrefix(heading, "### "), description)), nil
}

// insertEntry places "- description" under the category heading inside
// the Unreleased section, creating the category subsection right after
// the Unreleased heading when absent.
func insertEntry(content, heading, description string) (string, error) {
	lines := strings.Split(content, "\n")

	unreleased := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == unreleasedHeading {
			unreleased = i
			break
		}
	}
	if unreleased == -1 {
		return "", fmt.Errorf("changelog has no %s section", unreleasedHeading)
	}

	// Find the category heading inside the Unreleased section only:
	// stop at the next release heading ("## ...").
	sectionEnd := len(lines)
	category := -1
	for i := unreleased + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "## ") {
			sectionEnd = i
			break
		}
		if trimmed == heading {
			category = i
		}
	}

	entry := "- " + description
	var out []string
	if category == -1 {
		// New subsection right before the section end.
		out = append(out, lines[:sectionEnd]...)
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		out = append(out, heading, entry, "")
		out = append(out, lines[sectionEnd:]...)
	} else {
		// Append after the last existing entry of the subsection.
		insertAt := category + 1
		for insertAt < sectionEnd && strings.HasPrefix(strings.TrimSpace(lines[insertAt]), "- ") {
			insertAt++
		}
		out = append(out, lines[:insertAt]...)
		out = append(out, entry)
		out = append(out, lines[insertAt:]...)
	}
	return strings.Join(out, "\n"), nil
}
