package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/memory"
)

func TestInMemoryStore_SaveAndSearch(t *testing.T) {
	t.Parallel()

	s := memory.NewInMemoryStore()
	ctx := context.Background()

	saved, err := s.Save(ctx, memory.Entry{Content: "prefers dark mode", Category: memory.CategoryPreference})
	if err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Error("Save should assign ID and CreatedAt")
	}

	got, err := s.Search(ctx, "DARK", 10)
	if err != nil {
		t.Fatalf("Search returned unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != saved.ID {
		t.Errorf("Search = %+v, want the saved entry", got)
	}

	if got, _ := s.Search(ctx, "dark", 0); got != nil {
		t.Error("limit 0 should return nil")
	}
}

func TestInMemoryStore_SaveUpdatesInPlace(t *testing.T) {
	t.Parallel()

	s := memory.NewInMemoryStore()
	ctx := context.Background()

	saved, err := s.Save(ctx, memory.Entry{Content: "original", Category: memory.CategoryFact})
	if err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}
	saved.Content = "updated"
	if _, err := s.Save(ctx, saved); err != nil {
		t.Fatalf("second Save returned unexpected error: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after in-place update", s.Len())
	}
}

func TestInMemoryStore_Delete(t *testing.T) {
	t.Parallel()

	s := memory.NewInMemoryStore()
	ctx := context.Background()

	saved, err := s.Save(ctx, memory.Entry{Content: "gone soon", Category: memory.CategoryFact})
	if err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}
	if err := s.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("Delete returned unexpected error: %v", err)
	}
	if err := s.Delete(ctx, saved.ID); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}
