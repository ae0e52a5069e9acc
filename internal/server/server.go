// Package server wires the whole stack and creates the running pieces.
//
// This is the composition root: it loads settings, constructs the
// registry, runs the skill manifest through the loader, and hands the
// registry to a dispatcher bound to the output stream. No protocol or
// skill logic lives here — only wiring.
package server

import (
	"context"
	"fmt"
	"io"

	"skillserv/internal/config"
	"skillserv/internal/logging"
	"skillserv/internal/protocol"
	"skillserv/internal/skill"
	"skillserv/internal/skills/chat"
	"skillserv/internal/skills/governance"
	"skillserv/internal/usage"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server bundles the running components.
type Server struct {
	Dispatcher *protocol.Dispatcher
	Registry   *skill.Registry
	Settings   *config.Settings
}

// Manifest returns the skill factories this binary ships. Static
// registration: adding a skill means adding a factory here.
func Manifest(workspaceRoot string) []skill.Factory {
	return []skill.Factory{
		governance.Factory(workspaceRoot),
		chat.Factory(),
	}
}

// New builds a server writing protocol responses to out.
//
// The returned cleanup function unloads skills (running their Cleanup
// hooks) and closes the usage store; it must be called on shutdown and
// is always non-nil and safe to call even when New failed partway.
func New(ctx context.Context, out io.Writer) (*Server, func(), error) {
	settings, err := config.NewFileStore().Load()
	if err != nil {
		// A broken config file should not keep the server down; serve
		// with defaults and tell the operator on stderr.
		logging.Warn("config unusable, using defaults", "error", err)
		settings = config.Defaults()
	}
	logging.SetLevel(settings.LogLevel)

	workspace, err := settings.ResolveWorkspace()
	if err != nil {
		return nil, noop, fmt.Errorf("resolving workspace: %w", err)
	}

	registry := skill.NewRegistry()
	result := skill.Load(ctx, registry, Manifest(workspace))
	for _, failure := range result.Failed {
		logging.Warn("skill unavailable", "source", failure.Source, "error", failure.Err)
	}
	if len(result.Loaded) == 0 {
		return nil, noop, fmt.Errorf("no skills loaded (%d failed)", len(result.Failed))
	}

	// Usage accounting is an independent subsystem: if it fails to
	// open, tools keep working and we log a warning.
	var opts []protocol.Option
	cleanupUsage := noop
	if dbPath, err := settings.ResolveUsageDB(); err != nil {
		logging.Warn("usage recording disabled", "error", err)
	} else if dbPath != "" {
		store, err := usage.New(dbPath)
		if err != nil {
			logging.Warn("usage recording disabled", "error", err)
		} else {
			opts = append(opts, protocol.WithUsageRecorder(store))
			cleanupUsage = func() {
				logSessionStats(store)
				if err := store.Close(); err != nil {
					logging.Warn("usage store close", "error", err)
				}
			}
		}
	}

	dispatcher := protocol.NewDispatcher(registry, out, protocol.ServerInfo{
		Name:    "skillserv",
		Version: Version,
	}, opts...)

	cleanup := func() {
		skill.Unload(context.Background(), registry)
		cleanupUsage()
	}

	logging.Info("server ready",
		"skills", registry.Size(), "tools", registry.ToolCount(), "workspace", workspace)

	return &Server{
		Dispatcher: dispatcher,
		Registry:   registry,
		Settings:   settings,
	}, cleanup, nil
}

// logSessionStats writes this session's call count to the diagnostic
// log at shutdown.
func logSessionStats(store *usage.Store) {
	n, err := store.SessionCallCount()
	if err != nil {
		logging.Warn("usage stats", "error", err)
		return
	}
	logging.Info("session finished", "tool_calls", n, "session", store.SessionID())
}

func noop() {}
