// Package usage records tool-call accounting in SQLite.
//
// It keeps detailed per-call rows plus a running counter per tool. The
// store is strictly best-effort: the dispatcher records through it after the
// response is already on its way, and a failed insert is logged and
// dropped, never surfaced to the client.
package usage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"skillserv/internal/logging"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Store persists tool-call records for one server session.
type Store struct {
	db      *sql.DB
	session string
}

// ToolStats is the aggregate view for one tool.
type ToolStats struct {
	ToolName   string `json:"tool_name"`
	Calls      int64  `json:"calls"`
	Errors     int64  `json:"errors"`
	TotalMs    int64  `json:"total_ms"`
	LastCalled string `json:"last_called"`
}

// New opens (creating if needed) the usage database at dbPath and
// starts a new session row.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("usage: create data dir: %w", err)
	}

	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("usage: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("usage: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, session: uuid.NewString()}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("usage: migration: %w", err)
	}

	if _, err := db.Exec(
		`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		s.session, now(),
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("usage: start session: %w", err)
	}

	return s, nil
}

// SessionID returns this server run's session id.
func (s *Store) SessionID() string {
	return s.session
}

// RecordCall inserts one call row and bumps the tool's counters.
// Errors are logged and swallowed — accounting never affects serving.
func (s *Store) RecordCall(toolName string, isError bool, elapsed time.Duration) {
	errFlag := 0
	if isError {
		errFlag = 1
	}
	ts := now()

	if _, err := s.db.Exec(
		`INSERT INTO calls (session_id, tool_name, is_error, elapsed_ms, called_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.session, toolName, errFlag, elapsed.Milliseconds(), ts,
	); err != nil {
		logging.Warn("usage: record call", "tool", toolName, "error", err)
		return
	}

	if _, err := s.db.Exec(
		`INSERT INTO tool_counters (tool_name, calls, errors, total_ms, last_called)
		 VALUES (?, 1, ?, ?, ?)
		 ON CONFLICT(tool_name) DO UPDATE SET
		   calls = calls + 1,
		   errors = errors + excluded.errors,
		   total_ms = total_ms + excluded.total_ms,
		   last_called = excluded.last_called`,
		toolName, errFlag, elapsed.Milliseconds(), ts,
	); err != nil {
		logging.Warn("usage: bump counter", "tool", toolName, "error", err)
	}
}

// Stats returns per-tool aggregates ordered by call count descending.
func (s *Store) Stats() ([]ToolStats, error) {
	rows, err := s.db.Query(
		`SELECT tool_name, calls, errors, total_ms, last_called
		 FROM tool_counters ORDER BY calls DESC, tool_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("usage: query stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ToolStats
	for rows.Next() {
		var st ToolStats
		if err := rows.Scan(&st.ToolName, &st.Calls, &st.Errors, &st.TotalMs, &st.LastCalled); err != nil {
			return nil, fmt.Errorf("usage: scan stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SessionCallCount returns how many calls this session recorded.
func (s *Store) SessionCallCount() (int64, error) {
	var n int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM calls WHERE session_id = ?`, s.session,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("usage: count session calls: %w", err)
	}
	return n, nil
}

// Close stamps the session end and closes the database.
func (s *Store) Close() error {
	if _, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE id = ?`, now(), s.session,
	); err != nil {
		logging.Warn("usage: end session", "error", err)
	}
	return s.db.Close()
}

// migrate creates the schema. CREATE IF NOT EXISTS keeps it
// non-destructive across versions.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		ended_at TEXT
	);
	CREATE TABLE IF NOT EXISTS calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		is_error INTEGER NOT NULL DEFAULT 0,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		called_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_calls_session ON calls(session_id);
	CREATE INDEX IF NOT EXISTS idx_calls_tool ON calls(tool_name);
	CREATE TABLE IF NOT EXISTS tool_counters (
		tool_name TEXT PRIMARY KEY,
		calls INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		total_ms INTEGER NOT NULL DEFAULT 0,
		last_called TEXT
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
