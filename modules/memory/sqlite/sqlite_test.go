package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/memory"
	"github.com/mnemo-ai/mnemo/modules/memory/sqlite"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "memory.db")}, nil)
	if err != nil {
		t.Fatalf("Open returned unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveAssignsIDAndTimestamp(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	saved, err := s.Save(context.Background(), memory.Entry{
		Content:   "prefers dark mode",
		Category:  memory.CategoryPreference,
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}
	if saved.ID == "" {
		t.Error("Save should assign an ID")
	}
	if saved.CreatedAt.IsZero() {
		t.Error("Save should assign CreatedAt")
	}
}

func TestStore_SaveRejectsInvalidEntries(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, memory.Entry{Category: memory.CategoryFact}); err == nil {
		t.Error("expected an error for empty content")
	}
	if _, err := s.Save(ctx, memory.Entry{Content: "x", Category: "mood"}); err == nil {
		t.Error("expected an error for an unknown category")
	}
}

func TestStore_SearchFindsByContent(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	entries := []memory.Entry{
		{Content: "user timezone is Europe/Paris", Category: memory.CategoryFact, SessionID: "a"},
		{Content: "prefers tabs over spaces", Category: memory.CategoryPreference, SessionID: "a"},
		{Content: "project deadline is in March", Category: memory.CategoryFact, SessionID: "b"},
	}
	for _, e := range entries {
		if _, err := s.Save(ctx, e); err != nil {
			t.Fatalf("Save returned unexpected error: %v", err)
		}
	}

	got, err := s.Search(ctx, "timezone", 10)
	if err != nil {
		t.Fatalf("Search returned unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Search returned %d entries, want 1", len(got))
	}
	if got[0].SessionID != "a" || got[0].Category != memory.CategoryFact {
		t.Errorf("unexpected match: %+v", got[0])
	}

	// Empty query and non-positive limits short-circuit.
	if got, err := s.Search(ctx, "", 10); err != nil || got != nil {
		t.Errorf("Search(\"\") = %v, %v; want nil, nil", got, err)
	}
	if got, err := s.Search(ctx, "timezone", 0); err != nil || got != nil {
		t.Errorf("Search with limit 0 = %v, %v; want nil, nil", got, err)
	}
}

func TestStore_BySession(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	for _, e := range []memory.Entry{
		{Content: "first", Category: memory.CategoryFact, SessionID: "sess-1"},
		{Content: "second", Category: memory.CategoryFact, SessionID: "sess-1"},
		{Content: "other", Category: memory.CategoryFact, SessionID: "sess-2"},
	} {
		if _, err := s.Save(ctx, e); err != nil {
			t.Fatalf("Save returned unexpected error: %v", err)
		}
	}

	got, err := s.BySession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("BySession returned unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("BySession returned %d entries, want 2", len(got))
	}
	if got[0].Content != "first" || got[1].Content != "second" {
		t.Errorf("BySession order = %q, %q; want first, second", got[0].Content, got[1].Content)
	}
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, memory.Entry{Content: "ephemeral", Category: memory.CategoryFact})
	if err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}
	if err := s.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete returned unexpected error: %v", err)
	}
	if err := s.Delete(ctx, saved.ID); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}

	// The FTS index follows the delete trigger.
	got, err := s.Search(ctx, "ephemeral", 10)
	if err != nil {
		t.Fatalf("Search returned unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("deleted entry still searchable: %+v", got)
	}
}

func TestStore_FlushAndPing(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, memory.Entry{Content: "durable", Category: memory.CategoryFact}); err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}
	if err := s.Flush(ctx); err != nil {
		t.Errorf("Flush returned unexpected error: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping returned unexpected error: %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "memory.db")
	ctx := context.Background()

	s, err := sqlite.Open(sqlite.Config{Path: path}, nil)
	if err != nil {
		t.Fatalf("Open returned unexpected error: %v", err)
	}
	saved, err := s.Save(ctx, memory.Entry{Content: "survives reopen", Category: memory.CategoryFact})
	if err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned unexpected error: %v", err)
	}

	// Migration is idempotent and data survives.
	s2, err := sqlite.Open(sqlite.Config{Path: path}, nil)
	if err != nil {
		t.Fatalf("reopen returned unexpected error: %v", err)
	}
	defer func() { _ = s2.Close() }()

	got, err := s2.Search(ctx, "reopen", 10)
	if err != nil {
		t.Fatalf("Search returned unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != saved.ID {
		t.Errorf("expected the saved entry after reopen, got %+v", got)
	}
}

func TestOpen_RejectsMissingPath(t *testing.T) {
	t.Parallel()

	if _, err := sqlite.Open(sqlite.Config{}, nil); err == nil {
		t.Error("expected an error for an empty path")
	}
}
