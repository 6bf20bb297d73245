package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/workspace"
)

func TestEnsureStructure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "mnemo")
	w := workspace.New(root)

	if err := w.EnsureStructure(); err != nil {
		t.Fatalf("EnsureStructure returned unexpected error: %v", err)
	}
	for _, dir := range []string{root, w.TranscriptsDir(), w.ConversationsDir(), w.DataDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("expected directory %s: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}

	// Idempotent.
	if err := w.EnsureStructure(); err != nil {
		t.Errorf("second EnsureStructure returned unexpected error: %v", err)
	}
}

func TestPathHelpers(t *testing.T) {
	w := workspace.New("/data/mnemo")

	if got := w.SessionsFile(); got != filepath.Join("/data/mnemo", "sessions.json") {
		t.Errorf("SessionsFile() = %q", got)
	}
	if got := w.TranscriptsDir(); got != filepath.Join("/data/mnemo", "transcripts") {
		t.Errorf("TranscriptsDir() = %q", got)
	}
}

func TestDefaultRoot(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	got, err := workspace.DefaultRoot()
	if err != nil {
		t.Fatalf("DefaultRoot returned unexpected error: %v", err)
	}
	if got != filepath.Join("/custom/data", "mnemo") {
		t.Errorf("DefaultRoot() = %q", got)
	}

	t.Setenv("XDG_DATA_HOME", "")
	got, err = workspace.DefaultRoot()
	if err != nil {
		t.Fatalf("DefaultRoot returned unexpected error: %v", err)
	}
	if filepath.Base(got) != "mnemo" {
		t.Errorf("DefaultRoot() fallback = %q, want a mnemo directory", got)
	}
}
