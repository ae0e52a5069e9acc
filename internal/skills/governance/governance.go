// Package governance implements the gov skill: markdown-backed project
// governance files (a TODO list and a changelog) that tools read and
// update in place.
//
// All state lives under <workspace>/governance/. The skill's Init hook
// scaffolds missing files so every tool can assume they exist.
package governance

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"skillserv/internal/skill"
)

// Version of the gov skill.
const Version = "1.0.0"

// Factory returns the skill factory for the given workspace root.
func Factory(workspaceRoot string) skill.Factory {
	return func() (*skill.Skill, error) {
		store := NewFileStore(workspaceRoot)

		todoTool := NewTodoTool(store)
		changelogTool := NewChangelogTool(store)

		return &skill.Skill{
			ID:          "gov",
			Name:        "Governance",
			Description: "Read and update the project's governance files: TODO list and changelog.",
			Version:     Version,
			Tools: []skill.ToolRegistration{
				{Tool: todoTool.ReadDefinition(), Handler: todoTool.HandleRead},
				{Tool: todoTool.UpdateDefinition(), Handler: todoTool.HandleUpdate},
				{Tool: changelogTool.ReadDefinition(), Handler: changelogTool.HandleRead},
				{Tool: changelogTool.AddDefinition(), Handler: changelogTool.HandleAdd},
			},
			Init: func(ctx context.Context) error {
				return store.Scaffold()
			},
		}, nil
	}
}

// errorResult is a small shorthand used by the tool handlers.
func errorResult(msg string) *mcp.CallToolResult {
	return mcp.NewToolResultError(msg)
}
