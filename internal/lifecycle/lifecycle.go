// Package lifecycle coordinates process shutdown.
//
// Several triggers can race to end the server: a termination signal,
// stdin reaching EOF, a stream error. The manager funnels them all into
// one shutdown sequence that runs at most once, executes the registered
// cleanup hooks, and then releases whoever is waiting on the exit code.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"skillserv/internal/logging"
)

// shutdownTimeout bounds how long cleanup hooks may run once a shutdown
// trigger fires.
const shutdownTimeout = 5 * time.Second

// Manager runs the shutdown sequence at most once, no matter how many
// triggers fire or from how many goroutines.
type Manager struct {
	mu    sync.Mutex
	hooks []func(ctx context.Context)

	once sync.Once
	done chan struct{}
	code int
}

// NewManager creates a manager with no hooks installed.
func NewManager() *Manager {
	return &Manager{done: make(chan struct{})}
}

// OnShutdown registers a cleanup hook. Hooks run in registration order
// during the single shutdown sequence. Registering after shutdown has
// begun is a no-op.
func (m *Manager) OnShutdown(hook func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// WatchSignals installs handlers for SIGINT and SIGTERM. A signal
// triggers a normal (exit 0) shutdown.
func (m *Manager) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info("received signal, shutting down", "signal", sig)
		m.Shutdown(0)
	}()
}

// Shutdown runs the shutdown sequence with the given exit code. Only
// the first caller's code wins; later calls return immediately and the
// sequence is never re-run.
func (m *Manager) Shutdown(code int) {
	m.once.Do(func() {
		m.code = code

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		m.mu.Lock()
		hooks := m.hooks
		m.hooks = nil
		m.mu.Unlock()

		for _, hook := range hooks {
			hook(ctx)
		}
		close(m.done)
	})
}

// Wait blocks until shutdown completes and returns the exit code.
func (m *Manager) Wait() int {
	<-m.done
	return m.code
}
