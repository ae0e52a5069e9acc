package config

import (
	"os"
	"path/filepath"
	"testing"
)

// --- Defaults ---

func TestDefaults(t *testing.T) {
	settings := Defaults()

	if settings.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", settings.LogLevel)
	}
	if !settings.UpdateCheck {
		t.Error("UpdateCheck should default to true")
	}
	if settings.WorkspaceRoot != "" {
		t.Errorf("WorkspaceRoot = %s, want empty", settings.WorkspaceRoot)
	}
}

// --- FileStore ---

func TestFileStore_MissingFileYieldsDefaults(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), "skillserv.json"))

	settings, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", settings.LogLevel)
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), "nested", "skillserv.json"))

	in := Defaults()
	in.WorkspaceRoot = "/srv/project"
	in.LogLevel = "debug"
	in.UpdateCheck = false

	if err := store.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.WorkspaceRoot != "/srv/project" {
		t.Errorf("WorkspaceRoot = %s", out.WorkspaceRoot)
	}
	if out.LogLevel != "debug" {
		t.Errorf("LogLevel = %s", out.LogLevel)
	}
	if out.UpdateCheck {
		t.Error("UpdateCheck should be false")
	}
}

func TestFileStore_CorruptJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skillserv.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := NewFileStoreAt(path).Load()
	if err == nil {
		t.Fatal("corrupt config should fail to load")
	}
}

// --- Env overrides ---

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SKILLSERV_WORKSPACE", "/env/workspace")
	t.Setenv("SKILLSERV_LOG_LEVEL", "warn")
	t.Setenv("SKILLSERV_USAGE_DB", "off")
	t.Setenv("SKILLSERV_NO_UPDATE_CHECK", "1")

	store := NewFileStoreAt(filepath.Join(t.TempDir(), "skillserv.json"))
	settings, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if settings.WorkspaceRoot != "/env/workspace" {
		t.Errorf("WorkspaceRoot = %s", settings.WorkspaceRoot)
	}
	if settings.LogLevel != "warn" {
		t.Errorf("LogLevel = %s", settings.LogLevel)
	}
	if settings.UsageDBPath != "off" {
		t.Errorf("UsageDBPath = %s", settings.UsageDBPath)
	}
	if settings.UpdateCheck {
		t.Error("UpdateCheck should be disabled by env")
	}
}

func TestEnvOverridesBeatFileValues(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), "skillserv.json"))
	in := Defaults()
	in.LogLevel = "debug"
	if err := store.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	t.Setenv("SKILLSERV_LOG_LEVEL", "error")
	settings, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.LogLevel != "error" {
		t.Errorf("LogLevel = %s, want env to win", settings.LogLevel)
	}
}

// --- Resolvers ---

func TestResolveWorkspace_DefaultsToCwd(t *testing.T) {
	settings := Defaults()
	got, err := settings.ResolveWorkspace()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	cwd, _ := os.Getwd()
	if got != cwd {
		t.Errorf("workspace = %s, want %s", got, cwd)
	}
}

func TestResolveUsageDB_Off(t *testing.T) {
	settings := Defaults()
	settings.UsageDBPath = "off"

	path, err := settings.ResolveUsageDB()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if path != "" {
		t.Errorf("path = %s, want empty for disabled recording", path)
	}
}

func TestResolveUsageDB_ExplicitPath(t *testing.T) {
	settings := Defaults()
	settings.UsageDBPath = "/data/usage.db"

	path, err := settings.ResolveUsageDB()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if path != "/data/usage.db" {
		t.Errorf("path = %s", path)
	}
}
