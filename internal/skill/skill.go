// Package skill defines the skill contract and the registry that tracks
// which skill owns which tool.
//
// A skill is a declarative bundle: an id, some metadata, and an ordered
// list of tool registrations. The server never looks inside a handler —
// it only resolves tool names to handlers and invokes them. Skills are
// constructed by factory functions listed in the server's manifest
// (static registration; there is no runtime plugin discovery).
package skill

import (
	"context"
	"fmt"
	"regexp"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handler executes one tool call with already-validated arguments.
//
// The returned value may be a *mcp.CallToolResult (passed through as-is,
// which is what handlers built on mcp-go's result helpers return), a
// plain string (wrapped as one text content block), or any other value
// (serialized to indented JSON and wrapped as text). The router performs
// that normalization; handlers never need to.
type Handler func(ctx context.Context, req mcp.CallToolRequest) (any, error)

// ToolRegistration pairs a tool definition with its handler.
type ToolRegistration struct {
	Tool    mcp.Tool
	Handler Handler
}

// Skill is a named, versioned bundle of tools. It is immutable after
// registration: the registry copies nothing, so authors must not mutate
// a skill once handed over.
type Skill struct {
	// ID uniquely identifies the skill (kebab-case).
	ID string
	// Name is the human-readable skill name.
	Name string
	// Description explains what the skill's tools do.
	Description string
	// Version is a semver string ("1.2.0").
	Version string
	// Tools is the non-empty, ordered list of tool registrations.
	Tools []ToolRegistration

	// Init, when non-nil, runs exactly once before the skill is
	// considered loaded. An error here fails the load of this skill only.
	Init func(ctx context.Context) error
	// Cleanup, when non-nil, runs exactly once at unload or shutdown.
	Cleanup func(ctx context.Context) error
}

// Factory produces a skill instance at load time. The loader treats a
// factory error (or panic) as a per-skill failure, never a fatal one.
type Factory func() (*Skill, error)

var (
	idPattern      = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+([-+][0-9A-Za-z.-]+)?$`)
)

// Validate checks the skill's declarative shape: id format, required
// metadata, a non-empty tool list, and that every registration carries
// both a tool name and a handler.
func (s *Skill) Validate() error {
	if s == nil {
		return fmt.Errorf("skill is nil")
	}
	if !idPattern.MatchString(s.ID) {
		return fmt.Errorf("skill id %q: must be non-empty kebab-case", s.ID)
	}
	if s.Name == "" {
		return fmt.Errorf("skill %s: name is required", s.ID)
	}
	if s.Description == "" {
		return fmt.Errorf("skill %s: description is required", s.ID)
	}
	if !versionPattern.MatchString(s.Version) {
		return fmt.Errorf("skill %s: version %q is not semver", s.ID, s.Version)
	}
	if len(s.Tools) == 0 {
		return fmt.Errorf("skill %s: must declare at least one tool", s.ID)
	}
	seen := make(map[string]bool, len(s.Tools))
	for i, reg := range s.Tools {
		if reg.Tool.Name == "" {
			return fmt.Errorf("skill %s: tool #%d has no name", s.ID, i)
		}
		if reg.Handler == nil {
			return fmt.Errorf("skill %s: tool %s has no handler", s.ID, reg.Tool.Name)
		}
		if seen[reg.Tool.Name] {
			return fmt.Errorf("skill %s: tool %s declared twice", s.ID, reg.Tool.Name)
		}
		seen[reg.Tool.Name] = true
	}
	return nil
}

// FindTool returns the registration for the named tool, if the skill
// declares it.
func (s *Skill) FindTool(name string) (ToolRegistration, bool) {
	for _, reg := range s.Tools {
		if reg.Tool.Name == name {
			return reg, true
		}
	}
	return ToolRegistration{}, false
}
