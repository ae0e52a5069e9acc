// skillserv: skill-driven MCP tool server
//
// A stdio tool server for LLM chat clients (the companion VS Code
// extension spawns it as a child process and pipes newline-delimited
// JSON-RPC over stdin/stdout). Skills contribute named, schema-described
// tools; the server routes tools/call requests to them.
//
// Usage:
//
//	skillserv serve    # Start the server (stdio transport)
//	skillserv update   # Update to the latest version
package main

import (
	"context"
	"fmt"
	"os"

	"skillserv/internal/lifecycle"
	"skillserv/internal/logging"
	"skillserv/internal/server"
	"skillserv/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(serve())
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("skillserv v%s\n", server.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// serve runs the server until stdin closes, a signal arrives, or the
// stream errors, and returns the process exit code.
func serve() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := lifecycle.NewManager()
	mgr.WatchSignals()

	srv, cleanup, err := server.New(ctx, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cleanup()
		return 1
	}
	mgr.OnShutdown(func(context.Context) { cancel() })
	mgr.OnShutdown(func(context.Context) { srv.Dispatcher.Drain() })
	mgr.OnShutdown(func(context.Context) { cleanup() })

	// Background version check — stderr only, so it can't interfere
	// with the protocol channel on stdout.
	if srv.Settings.UpdateCheck {
		go notifyIfOutdated()
	}

	go func() {
		err := srv.Dispatcher.Serve(ctx, os.Stdin)
		if err != nil && ctx.Err() == nil {
			logging.Error("input stream failed", "error", err)
			mgr.Shutdown(1)
			return
		}
		mgr.Shutdown(0)
	}()

	return mgr.Wait()
}

// notifyIfOutdated prints an update notice to stderr when a newer
// release exists. Best-effort: network failures are silently ignored.
func notifyIfOutdated() {
	result := updater.Check(server.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s → v%s\n"+
				"  Run: skillserv update\n"+
				"  Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest release.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "Checking for updates...\n")

	result := updater.Check(server.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "New version available: v%s → v%s\nDownloading...\n",
		result.CurrentVersion, result.LatestVersion)

	if err := updater.SelfUpdate(server.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n  You can download manually from:\n  %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Updated to v%s. Restart skillserv to use the new version.\n",
		result.LatestVersion)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `skillserv v%s — skill-driven MCP tool server

Usage:
  skillserv serve    Start the server (stdio transport)
  skillserv update   Update to the latest version
  skillserv version  Print the version

Configuration:
  Add to your client's MCP config:

  {
    "mcpServers": {
      "skillserv": {
        "command": "skillserv",
        "args": ["serve"]
      }
    }
  }
`, server.Version)
}
