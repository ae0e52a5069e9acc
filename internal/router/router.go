// Package router resolves tool calls against the skill registry:
// find the owning skill, validate arguments against the tool's declared
// input schema, invoke the handler, and normalize whatever comes back
// into a protocol-shaped tool result.
//
// Nothing here ever raises: every failure mode — unknown tool, schema
// violation, handler error, handler panic — degrades to a result with
// IsError set. Tool-level failure is not protocol-level failure.
package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"skillserv/internal/logging"
	"skillserv/internal/skill"
)

// Call routes one tool invocation. The returned result is always
// non-nil and safe to serialize; errors are carried inside it.
func Call(ctx context.Context, reg *skill.Registry, toolName string, rawArgs map[string]any) *mcp.CallToolResult {
	owner, ok := reg.FindByTool(toolName)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("Unknown tool: %s", toolName))
	}

	registration, ok := owner.FindTool(toolName)
	if !ok {
		// The registry said this skill owns the tool but the skill does
		// not declare it. That means registry state and skill state have
		// diverged, which should be impossible.
		logging.Error("registry inconsistency: tool not found in owning skill",
			"tool", toolName, "skill", owner.ID)
		return mcp.NewToolResultError(fmt.Sprintf(
			"internal error: tool %s is registered to skill %s but not declared by it",
			toolName, owner.ID))
	}

	if rawArgs == nil {
		rawArgs = map[string]any{}
	}
	if err := validateArgs(registration.Tool, rawArgs); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments for %s: %v", toolName, err))
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = rawArgs

	value, err := invoke(ctx, registration.Handler, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return normalize(value)
}

// ListTools flattens every registered skill's tool definitions, in
// registration order, into the shape returned by tools/list.
func ListTools(reg *skill.Registry) []mcp.Tool {
	var out []mcp.Tool
	for _, s := range reg.GetAll() {
		for _, registration := range s.Tools {
			out = append(out, registration.Tool)
		}
	}
	return out
}

// invoke runs the handler, converting a panic into an error so a buggy
// skill can never take down the read loop.
func invoke(ctx context.Context, h skill.Handler, req mcp.CallToolRequest) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool handler panic: %v", rec)
		}
	}()
	return h(ctx, req)
}

// normalize coerces a handler's return value into a tool result:
// pre-formed results pass through, strings become one text block, and
// anything else is serialized to indented JSON.
func normalize(value any) *mcp.CallToolResult {
	switch v := value.(type) {
	case *mcp.CallToolResult:
		if v == nil {
			return mcp.NewToolResultError("tool handler returned nil result")
		}
		return v
	case string:
		return mcp.NewToolResultText(v)
	case nil:
		return mcp.NewToolResultText("")
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("serializing tool result: %v", err))
		}
		return mcp.NewToolResultText(string(data))
	}
}

// validateArgs checks the provided arguments against the tool's input
// schema: every required property must be present, and every property
// the schema describes must match its declared type (and enum, when one
// is declared). Properties the schema does not mention are passed
// through untouched.
func validateArgs(tool mcp.Tool, args map[string]any) error {
	schema := tool.InputSchema

	for _, name := range schema.Required {
		if _, present := args[name]; !present {
			return fmt.Errorf("missing required argument %q", name)
		}
	}

	for name, value := range args {
		propAny, described := schema.Properties[name]
		if !described {
			continue
		}
		prop, ok := propAny.(map[string]any)
		if !ok {
			continue
		}
		if err := checkProperty(name, prop, value); err != nil {
			return err
		}
	}
	return nil
}

// checkProperty validates one argument value against its schema node.
func checkProperty(name string, prop map[string]any, value any) error {
	declaredType, _ := prop["type"].(string)
	switch declaredType {
	case "string":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("argument %q must be a string, got %T", name, value)
		}
		if enum, ok := prop["enum"].([]any); ok && len(enum) > 0 {
			if !enumContains(enum, s) {
				return fmt.Errorf("argument %q must be one of %v, got %q", name, enum, s)
			}
		}
	case "number", "integer":
		if !isNumber(value) {
			return fmt.Errorf("argument %q must be a number, got %T", name, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean, got %T", name, value)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("argument %q must be an array, got %T", name, value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("argument %q must be an object, got %T", name, value)
		}
	}
	return nil
}

func enumContains(enum []any, s string) bool {
	for _, candidate := range enum {
		if cs, ok := candidate.(string); ok && cs == s {
			return true
		}
	}
	return false
}

// isNumber accepts the types a JSON decode or a Go caller can
// reasonably hand us for a numeric argument.
func isNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return true
	default:
		return false
	}
}
