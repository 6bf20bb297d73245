package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/session"
)

func TestResolveSession(t *testing.T) {
	t.Parallel()

	repo := session.NewRepository(filepath.Join(t.TempDir(), "sessions.json"), session.Defaults{})
	mainSess, err := repo.Create(session.CreateOptions{Title: "main work"})
	if err != nil {
		t.Fatalf("Create returned unexpected error: %v", err)
	}
	other, err := repo.Create(session.CreateOptions{Title: "side quest"})
	if err != nil {
		t.Fatalf("Create returned unexpected error: %v", err)
	}

	// An explicit id wins over the main session.
	got, err := resolveSession(repo, []string{other.ID})
	if err != nil {
		t.Fatalf("resolveSession returned unexpected error: %v", err)
	}
	if got.ID != other.ID {
		t.Errorf("resolveSession = %s, want the named session %s", got.ID, other.ID)
	}

	// No argument falls back to the main session.
	got, err = resolveSession(repo, nil)
	if err != nil {
		t.Fatalf("resolveSession returned unexpected error: %v", err)
	}
	if got.ID != mainSess.ID || !got.IsMain {
		t.Errorf("resolveSession = %s (main=%v), want the main session %s", got.ID, got.IsMain, mainSess.ID)
	}

	if _, err := resolveSession(repo, []string{"no-such-id"}); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("resolveSession error = %v, want ErrNotFound", err)
	}
}
