// Package config loads server settings.
//
// Settings come from three layers, later layers winning: built-in
// defaults, an optional JSON file under the XDG config directory, and
// SKILLSERV_* environment variables. The file is optional — a missing
// config file yields pure defaults, not an error.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// AppDir is the directory name used under the XDG config and data
	// roots.
	AppDir = "skillserv"
	// FileName is the settings file name.
	FileName = "skillserv.json"
)

// Settings holds everything the server reads at startup.
type Settings struct {
	// WorkspaceRoot is where file-backed skills (governance) keep their
	// state. Defaults to the current working directory.
	WorkspaceRoot string `json:"workspace_root,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`
	// UsageDBPath is the SQLite file for tool-call accounting. Empty
	// means the XDG data dir default; "off" disables recording.
	UsageDBPath string `json:"usage_db_path,omitempty"`
	// UpdateCheck controls the background release check on serve.
	UpdateCheck bool `json:"update_check"`
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		LogLevel:    "info",
		UpdateCheck: true,
	}
}

// Store defines settings persistence. Abstracted for testability.
type Store interface {
	Load() (*Settings, error)
	Save(*Settings) error
}

// FileStore implements Store against the XDG config directory.
type FileStore struct {
	// path overrides the XDG location when non-empty (tests).
	path string
}

// NewFileStore creates a store rooted at the XDG config directory.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// NewFileStoreAt creates a store reading and writing the given file.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the settings file location.
func (fs *FileStore) Path() (string, error) {
	if fs.path != "" {
		return fs.path, nil
	}
	return xdg.ConfigFile(filepath.Join(AppDir, FileName))
}

// Load reads settings, layering file contents and env overrides over
// the defaults.
func (fs *FileStore) Load() (*Settings, error) {
	settings := Defaults()

	path, err := fs.Path()
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file: defaults + env only.
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnv(settings)
	return settings, nil
}

// Save writes settings as indented JSON, creating parent directories.
func (fs *FileStore) Save(settings *Settings) error {
	path, err := fs.Path()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// applyEnv overlays SKILLSERV_* environment variables.
func applyEnv(settings *Settings) {
	if v := os.Getenv("SKILLSERV_WORKSPACE"); v != "" {
		settings.WorkspaceRoot = v
	}
	if v := os.Getenv("SKILLSERV_LOG_LEVEL"); v != "" {
		settings.LogLevel = v
	}
	if v := os.Getenv("SKILLSERV_USAGE_DB"); v != "" {
		settings.UsageDBPath = v
	}
	if os.Getenv("SKILLSERV_NO_UPDATE_CHECK") != "" {
		settings.UpdateCheck = false
	}
}

// ResolveWorkspace returns the effective workspace root: the configured
// one, or the current working directory.
func (s *Settings) ResolveWorkspace() (string, error) {
	if s.WorkspaceRoot != "" {
		return s.WorkspaceRoot, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return dir, nil
}

// ResolveUsageDB returns the effective usage database path, or ""
// when usage recording is disabled.
func (s *Settings) ResolveUsageDB() (string, error) {
	switch s.UsageDBPath {
	case "off":
		return "", nil
	case "":
		return xdg.DataFile(filepath.Join(AppDir, "usage.db"))
	default:
		return s.UsageDBPath, nil
	}
}
