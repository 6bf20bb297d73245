// Package workspace manages the on-disk layout of the assistant's
// persistence root: session metadata, transcripts, conversations, and
// the long-term memory database.
package workspace

import (
	"os"
	"path/filepath"
)

// Workspace represents the persistence root directory structure.
// It provides path helpers and ensures the required subdirectories exist.
type Workspace struct {
	Root string
}

// New creates a new Workspace rooted at the given directory.
func New(root string) *Workspace {
	return &Workspace{Root: root}
}

// DefaultRoot resolves the platform data directory for the workspace:
// $XDG_DATA_HOME/mnemo, falling back to ~/.local/share/mnemo.
func DefaultRoot() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "mnemo"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "mnemo"), nil
}

// EnsureStructure creates the workspace directory tree if it does not exist.
// Idempotent — safe to call multiple times.
func (w *Workspace) EnsureStructure() error {
	dirs := []string{
		w.Root,
		w.TranscriptsDir(),
		w.ConversationsDir(),
		w.DataDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// SessionsFile returns the path to the session metadata table.
func (w *Workspace) SessionsFile() string {
	return filepath.Join(w.Root, "sessions.json")
}

// TranscriptsDir returns the directory holding per-session JSONL transcripts.
func (w *Workspace) TranscriptsDir() string {
	return filepath.Join(w.Root, "transcripts")
}

// ConversationsDir returns the directory holding active conversation state.
func (w *Workspace) ConversationsDir() string {
	return filepath.Join(w.Root, "conversations")
}

// DataDir returns the directory for module data such as the memory database.
func (w *Workspace) DataDir() string {
	return filepath.Join(w.Root, "data")
}
