// Package chat implements the chat skill: small conversational probe
// tools (echo, ping) used by clients to verify the server round-trip.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"skillserv/internal/skill"
)

// Version of the chat skill.
const Version = "1.0.0"

// pingReply is what ping returns, alongside uptime. It is serialized by
// the router's JSON normalization.
type pingReply struct {
	Reply  string `json:"reply"`
	Uptime string `json:"uptime"`
}

// Factory returns the chat skill factory.
func Factory() skill.Factory {
	return func() (*skill.Skill, error) {
		started := time.Now()

		return &skill.Skill{
			ID:          "chat",
			Name:        "Chat",
			Description: "Conversational probe tools for verifying the tool round-trip.",
			Version:     Version,
			Tools: []skill.ToolRegistration{
				{
					Tool: mcp.NewTool("echo",
						mcp.WithDescription("Echo a message back, prefixed with 'Echo: '."),
						mcp.WithString("message",
							mcp.Required(),
							mcp.Description("The message to echo."),
						),
					),
					Handler: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
						message := req.GetString("message", "")
						return fmt.Sprintf("Echo: %s", message), nil
					},
				},
				{
					Tool: mcp.NewTool("ping",
						mcp.WithDescription("Liveness probe. Returns 'pong' and the server uptime."),
					),
					Handler: func(ctx context.Context, req mcp.CallToolRequest) (any, error) {
						return pingReply{
							Reply:  "pong",
							Uptime: time.Since(started).Round(time.Millisecond).String(),
						}, nil
					},
				},
			},
		}, nil
	}
}
