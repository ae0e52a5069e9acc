package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillserv/internal/skill"
)

// --- Test helpers ---

// resultText extracts the first text block from a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "first content block is not text")
	return tc.Text
}

func registryWith(t *testing.T, tools ...skill.ToolRegistration) *skill.Registry {
	t.Helper()
	reg := skill.NewRegistry()
	require.NoError(t, reg.Register(&skill.Skill{
		ID:          "test",
		Name:        "Test",
		Description: "test skill",
		Version:     "1.0.0",
		Tools:       tools,
	}))
	return reg
}

func echoRegistration() skill.ToolRegistration {
	return skill.ToolRegistration{
		Tool: mcp.NewTool("echo",
			mcp.WithDescription("Echo a message."),
			mcp.WithString("message", mcp.Required(), mcp.Description("the message")),
			mcp.WithString("tone", mcp.Description("optional tone"), mcp.Enum("plain", "loud")),
			mcp.WithNumber("repeat", mcp.Description("optional repeat count")),
			mcp.WithBoolean("trim", mcp.Description("optional trim flag")),
		),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
			return fmt.Sprintf("Echo: %s", req.GetString("message", "")), nil
		},
	}
}

// --- Routing failures ---

func TestCall_UnknownTool(t *testing.T) {
	reg := registryWith(t, echoRegistration())

	result := Call(context.Background(), reg, "missing", nil)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Unknown tool: missing")
}

// --- Validation ---

func TestCall_MissingRequiredArgument(t *testing.T) {
	reg := registryWith(t, echoRegistration())

	result := Call(context.Background(), reg, "echo", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "message")
}

func TestCall_NilArgsStillValidated(t *testing.T) {
	reg := registryWith(t, echoRegistration())

	result := Call(context.Background(), reg, "echo", nil)
	assert.True(t, result.IsError)
}

func TestCall_WrongTypeRejected(t *testing.T) {
	reg := registryWith(t, echoRegistration())

	cases := []map[string]any{
		{"message": 42},
		{"message": "hi", "repeat": "three"},
		{"message": "hi", "trim": "yes"},
	}
	for _, args := range cases {
		result := Call(context.Background(), reg, "echo", args)
		assert.Truef(t, result.IsError, "args %v must fail validation", args)
	}
}

func TestCall_EnumViolationRejected(t *testing.T) {
	reg := registryWith(t, echoRegistration())

	result := Call(context.Background(), reg, "echo", map[string]any{
		"message": "hi", "tone": "whisper",
	})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "tone")
}

func TestCall_UndeclaredArgumentsPassThrough(t *testing.T) {
	reg := registryWith(t, echoRegistration())

	result := Call(context.Background(), reg, "echo", map[string]any{
		"message": "hi", "extra": []any{1, 2},
	})
	assert.False(t, result.IsError)
	assert.Equal(t, "Echo: hi", resultText(t, result))
}

func TestCall_NumericArgumentsFromJSONAndGo(t *testing.T) {
	reg := registryWith(t, echoRegistration())

	// float64 is what encoding/json produces; int is what Go tests pass.
	for _, repeat := range []any{float64(3), int(3)} {
		result := Call(context.Background(), reg, "echo", map[string]any{
			"message": "hi", "repeat": repeat,
		})
		assert.Falsef(t, result.IsError, "repeat %T should validate", repeat)
	}
}

// --- Handler outcomes ---

func TestCall_Success(t *testing.T) {
	reg := registryWith(t, echoRegistration())

	result := Call(context.Background(), reg, "echo", map[string]any{"message": "hi"})
	require.NotNil(t, result)
	assert.False(t, result.IsError)
	assert.Equal(t, "Echo: hi", resultText(t, result))
}

func TestCall_HandlerErrorBecomesErrorResult(t *testing.T) {
	reg := registryWith(t, skill.ToolRegistration{
		Tool: mcp.NewTool("fail", mcp.WithDescription("Always fails.")),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
			return nil, errors.New("backend unavailable")
		},
	})

	result := Call(context.Background(), reg, "fail", nil)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "backend unavailable")
}

func TestCall_HandlerPanicBecomesErrorResult(t *testing.T) {
	reg := registryWith(t, skill.ToolRegistration{
		Tool: mcp.NewTool("crash", mcp.WithDescription("Always panics.")),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
			panic("nil map write")
		},
	})

	result := Call(context.Background(), reg, "crash", nil)
	require.NotNil(t, result, "a panicking handler must not crash the router")
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "nil map write")
}

// --- Normalization ---

func TestCall_NormalizesStringResult(t *testing.T) {
	reg := registryWith(t, skill.ToolRegistration{
		Tool: mcp.NewTool("text", mcp.WithDescription("Returns a plain string.")),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
			return "plain text", nil
		},
	})

	result := Call(context.Background(), reg, "text", nil)
	assert.Equal(t, "plain text", resultText(t, result))
}

func TestCall_PassesThroughPreformedResult(t *testing.T) {
	preformed := mcp.NewToolResultText("already wrapped")
	reg := registryWith(t, skill.ToolRegistration{
		Tool: mcp.NewTool("wrapped", mcp.WithDescription("Returns a pre-formed result.")),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
			return preformed, nil
		},
	})

	result := Call(context.Background(), reg, "wrapped", nil)
	assert.Same(t, preformed, result)
}

func TestCall_SerializesStructResultAsJSON(t *testing.T) {
	type reply struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	reg := registryWith(t, skill.ToolRegistration{
		Tool: mcp.NewTool("stats", mcp.WithDescription("Returns a struct.")),
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
			return reply{Status: "ok", Count: 2}, nil
		},
	})

	result := Call(context.Background(), reg, "stats", nil)
	assert.False(t, result.IsError)
	text := resultText(t, result)
	assert.JSONEq(t, `{"status":"ok","count":2}`, text)
}

// --- ListTools ---

func TestListTools_FlattensInOrder(t *testing.T) {
	reg := skill.NewRegistry()
	require.NoError(t, reg.Register(&skill.Skill{
		ID: "gov", Name: "Gov", Description: "g", Version: "1.0.0",
		Tools: []skill.ToolRegistration{
			{Tool: mcp.NewTool("read_todo", mcp.WithDescription("d")), Handler: nopHandler},
			{Tool: mcp.NewTool("update_todo", mcp.WithDescription("d")), Handler: nopHandler},
		},
	}))
	require.NoError(t, reg.Register(&skill.Skill{
		ID: "chat", Name: "Chat", Description: "c", Version: "1.0.0",
		Tools: []skill.ToolRegistration{
			{Tool: mcp.NewTool("echo", mcp.WithDescription("d")), Handler: nopHandler},
		},
	}))

	tools := ListTools(reg)
	require.Len(t, tools, 3)
	assert.Equal(t, "read_todo", tools[0].Name)
	assert.Equal(t, "update_todo", tools[1].Name)
	assert.Equal(t, "echo", tools[2].Name)
}

func TestListTools_EmptyRegistry(t *testing.T) {
	assert.Empty(t, ListTools(skill.NewRegistry()))
}

func nopHandler(ctx context.Context, req mcp.CallToolRequest) (any, error) {
	return "", nil
}
