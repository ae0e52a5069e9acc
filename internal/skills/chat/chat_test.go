package chat

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func buildSkill(t *testing.T) map[string]func(context.Context, mcp.CallToolRequest) (any, error) {
	t.Helper()
	s, err := Factory()()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("invalid skill: %v", err)
	}
	handlers := make(map[string]func(context.Context, mcp.CallToolRequest) (any, error))
	for _, reg := range s.Tools {
		handlers[reg.Tool.Name] = reg.Handler
	}
	return handlers
}

func TestEcho(t *testing.T) {
	handlers := buildSkill(t)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"message": "hi"}

	value, err := handlers["echo"](context.Background(), req)
	if err != nil {
		t.Fatalf("echo: %v", err)
	}
	if value != "Echo: hi" {
		t.Errorf("echo = %q, want %q", value, "Echo: hi")
	}
}

func TestPing(t *testing.T) {
	handlers := buildSkill(t)

	value, err := handlers["ping"](context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("ping: %v", err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal ping reply: %v", err)
	}
	if !strings.Contains(string(data), `"reply":"pong"`) {
		t.Errorf("ping reply = %s, want pong", data)
	}
	if !strings.Contains(string(data), `"uptime"`) {
		t.Errorf("ping reply missing uptime: %s", data)
	}
}

func TestSkillMetadata(t *testing.T) {
	s, err := Factory()()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if s.ID != "chat" {
		t.Errorf("id = %s, want chat", s.ID)
	}
	if len(s.Tools) != 2 {
		t.Errorf("tool count = %d, want 2", len(s.Tools))
	}
}
