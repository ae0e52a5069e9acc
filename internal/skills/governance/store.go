package governance

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// GovernanceDir is the subdirectory under the workspace where
	// governance files live.
	GovernanceDir = "governance"
	// TodoFile is the TODO list filename.
	TodoFile = "TODO.md"
	// ChangelogFile is the changelog filename.
	ChangelogFile = "CHANGELOG.md"
)

// todoTemplate seeds a fresh TODO file.
const todoTemplate = `# TODO

<!-- Items are markdown checkboxes. Tools add, check, and remove them. -->
`

// changelogTemplate seeds a fresh changelog in Keep-a-Changelog layout.
const changelogTemplate = `# Changelog

All notable changes to this project are documented in this file.

## [Unreleased]
`

// FileStore reads and writes the governance files for one workspace.
type FileStore struct {
	root string
}

// NewFileStore creates a filesystem-backed governance store.
func NewFileStore(workspaceRoot string) *FileStore {
	return &FileStore{root: workspaceRoot}
}

// Dir returns the absolute path of the governance directory.
func (fs *FileStore) Dir() string {
	return filepath.Join(fs.root, GovernanceDir)
}

// TodoPath returns the absolute path of the TODO file.
func (fs *FileStore) TodoPath() string {
	return filepath.Join(fs.Dir(), TodoFile)
}

// ChangelogPath returns the absolute path of the changelog file.
func (fs *FileStore) ChangelogPath() string {
	return filepath.Join(fs.Dir(), ChangelogFile)
}

// Scaffold creates the governance directory and seeds any missing files
// from the templates. Existing files are never touched.
func (fs *FileStore) Scaffold() error {
	if err := os.MkdirAll(fs.Dir(), 0o755); err != nil {
		return fmt.Errorf("creating governance directory: %w", err)
	}
	if err := seedFile(fs.TodoPath(), todoTemplate); err != nil {
		return err
	}
	return seedFile(fs.ChangelogPath(), changelogTemplate)
}

// ReadTodo returns the TODO file content.
func (fs *FileStore) ReadTodo() (string, error) {
	return readFile(fs.TodoPath())
}

// WriteTodo replaces the TODO file content.
func (fs *FileStore) WriteTodo(content string) error {
	return writeFile(fs.TodoPath(), content)
}

// ReadChangelog returns the changelog content.
func (fs *FileStore) ReadChangelog() (string, error) {
	return readFile(fs.ChangelogPath())
}

// WriteChangelog replaces the changelog content.
func (fs *FileStore) WriteChangelog(content string) error {
	return writeFile(fs.ChangelogPath(), content)
}

func seedFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	return writeFile(path, content)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
