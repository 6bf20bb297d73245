package conversation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mnemo-ai/mnemo/internal/conversation"
)

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := conversation.NewFileStore(t.TempDir())
	ctx := context.Background()

	conv := &conversation.Conversation{
		SessionID: "sess-1",
		Messages: []conversation.Message{
			{ID: "m1", Role: conversation.RoleUser, Content: "hello", CreatedAt: time.Now().UTC()},
			{ID: "m2", Role: conversation.RoleAssistant, Content: "hi"},
		},
	}
	if err := s.Save(ctx, conv); err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}

	got, err := s.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if got.SessionID != "sess-1" || len(got.Messages) != 2 {
		t.Fatalf("unexpected conversation: %+v", got)
	}
	if got.Messages[0].ID != "m1" || got.Messages[1].Role != conversation.RoleAssistant {
		t.Errorf("message order or fields lost: %+v", got.Messages)
	}
}

func TestFileStore_LoadMissingReturnsEmpty(t *testing.T) {
	t.Parallel()

	s := conversation.NewFileStore(t.TempDir())
	got, err := s.Load(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if got.SessionID != "unknown" || len(got.Messages) != 0 {
		t.Errorf("expected an empty conversation, got %+v", got)
	}
}

func TestFileStore_SaveReplaces(t *testing.T) {
	t.Parallel()

	s := conversation.NewFileStore(t.TempDir())
	ctx := context.Background()

	first := &conversation.Conversation{
		SessionID: "sess-1",
		Messages:  []conversation.Message{{ID: "m1", Role: conversation.RoleUser, Content: "one"}},
	}
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save returned unexpected error: %v", err)
	}
	second := &conversation.Conversation{
		SessionID: "sess-1",
		Messages:  []conversation.Message{{ID: "m2", Role: conversation.RoleUser, Content: "two"}},
	}
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("second Save returned unexpected error: %v", err)
	}

	got, err := s.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].ID != "m2" {
		t.Errorf("Save should replace the document, got %+v", got.Messages)
	}
}

func TestFileStore_RejectsInvalidSessionID(t *testing.T) {
	t.Parallel()

	s := conversation.NewFileStore(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "a/b", `a\b`, ".."} {
		err := s.Save(ctx, &conversation.Conversation{SessionID: id})
		if !errors.Is(err, conversation.ErrInvalidSessionID) {
			t.Errorf("Save(%q) error = %v, want ErrInvalidSessionID", id, err)
		}
		if _, err := s.Load(ctx, id); !errors.Is(err, conversation.ErrInvalidSessionID) {
			t.Errorf("Load(%q) error = %v, want ErrInvalidSessionID", id, err)
		}
	}
}

func TestConversation_Clone(t *testing.T) {
	t.Parallel()

	orig := &conversation.Conversation{
		SessionID: "sess-1",
		Messages:  []conversation.Message{{ID: "m1", Role: conversation.RoleUser, Content: "hello"}},
	}
	clone := orig.Clone()
	clone.Messages[0].Content = "mutated"
	if orig.Messages[0].Content != "hello" {
		t.Error("Clone must not share message storage")
	}
}
