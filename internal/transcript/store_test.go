package transcript_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/transcript"
)

func TestStore_AppendAndRead(t *testing.T) {
	t.Parallel()

	s := transcript.NewStore(t.TempDir())
	defer func() { _ = s.Close() }()

	if err := s.Append("sess-1", transcript.NewSessionStartEntry("sess-1")); err != nil {
		t.Fatalf("Append returned unexpected error: %v", err)
	}
	if err := s.AppendBatch("sess-1", []transcript.Entry{
		transcript.NewMessageEntry(transcript.RoleUser, "hello", "m1"),
		transcript.NewMessageEntry(transcript.RoleAssistant, "hi there", "m2"),
	}); err != nil {
		t.Fatalf("AppendBatch returned unexpected error: %v", err)
	}

	entries, err := s.Read("sess-1")
	if err != nil {
		t.Fatalf("Read returned unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	start, ok := entries[0].(*transcript.SessionStartEntry)
	if !ok {
		t.Fatalf("entries[0] = %T, want *SessionStartEntry", entries[0])
	}
	if start.SessionID != "sess-1" {
		t.Errorf("sessionId = %q, want %q", start.SessionID, "sess-1")
	}

	msg, ok := entries[2].(*transcript.MessageEntry)
	if !ok {
		t.Fatalf("entries[2] = %T, want *MessageEntry", entries[2])
	}
	if msg.Role != transcript.RoleAssistant || msg.Content != "hi there" || msg.MessageID != "m2" {
		t.Errorf("unexpected message entry: %+v", msg)
	}
}

func TestStore_ReadMissingFile(t *testing.T) {
	t.Parallel()

	s := transcript.NewStore(t.TempDir())
	entries, err := s.Read("never-written")
	if err != nil {
		t.Fatalf("Read returned unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestStore_AppendEmptyBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := transcript.NewStore(dir)
	if err := s.AppendBatch("sess-1", nil); err != nil {
		t.Fatalf("empty batch should be a no-op, got error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sess-1.jsonl")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("empty batch should not create the file, stat err = %v", err)
	}
}

func TestStore_InvalidSessionID(t *testing.T) {
	t.Parallel()

	s := transcript.NewStore(t.TempDir())
	tests := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"slash", "a/b"},
		{"backslash", `a\b`},
		{"dotdot", "../escape"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := s.Append(tt.id, transcript.NewTokenEntry("x"))
			if !errors.Is(err, transcript.ErrInvalidSessionID) {
				t.Errorf("Append(%q) error = %v, want ErrInvalidSessionID", tt.id, err)
			}
		})
	}
}

func TestStore_ReadTail(t *testing.T) {
	t.Parallel()

	s := transcript.NewStore(t.TempDir())
	var batch []transcript.Entry
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		batch = append(batch, transcript.NewMessageEntry(transcript.RoleUser, "msg "+id, id))
	}
	if err := s.AppendBatch("sess-1", batch); err != nil {
		t.Fatalf("AppendBatch returned unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		count   int
		wantIDs []string
	}{
		{"last two", 2, []string{"m3", "m4"}},
		{"more than available", 10, []string{"m1", "m2", "m3", "m4"}},
		{"zero", 0, nil},
		{"negative", -3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entries, err := s.ReadTail("sess-1", tt.count)
			if err != nil {
				t.Fatalf("ReadTail returned unexpected error: %v", err)
			}
			if len(entries) != len(tt.wantIDs) {
				t.Fatalf("expected %d entries, got %d", len(tt.wantIDs), len(entries))
			}
			for i, want := range tt.wantIDs {
				msg := entries[i].(*transcript.MessageEntry)
				if msg.MessageID != want {
					t.Errorf("entries[%d].MessageID = %q, want %q", i, msg.MessageID, want)
				}
			}
		})
	}
}

func TestStore_ReadReportsLineNumber(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := transcript.NewStore(dir)
	if err := s.Append("sess-1", transcript.NewTokenEntry("ok")); err != nil {
		t.Fatalf("Append returned unexpected error: %v", err)
	}

	path := filepath.Join(dir, "sess-1.jsonl")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{not json}\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = f.Close()

	_, err = s.Read("sess-1")
	if err == nil {
		t.Fatal("expected error for malformed line, got nil")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should carry 1-based line number, got: %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error should carry the file path, got: %v", err)
	}
}

func TestStore_SyncAfterAppend(t *testing.T) {
	t.Parallel()

	s := transcript.NewStore(t.TempDir())
	if err := s.Append("sess-1", transcript.NewTokenEntry("x")); err != nil {
		t.Fatalf("Append returned unexpected error: %v", err)
	}
	if err := s.Sync("sess-1"); err != nil {
		t.Fatalf("Sync returned unexpected error: %v", err)
	}
}

func TestDecode_SchemaValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		ok   bool
	}{
		{"valid message", `{"type":"message","timestamp":"2026-01-01T00:00:00Z","role":"user","content":"hi","messageId":"m1"}`, true},
		{"bad role", `{"type":"message","timestamp":"2026-01-01T00:00:00Z","role":"robot","content":"hi","messageId":"m1"}`, false},
		{"missing timestamp", `{"type":"message","role":"user","content":"hi","messageId":"m1"}`, false},
		{"unknown type", `{"type":"banana","timestamp":"2026-01-01T00:00:00Z"}`, false},
		{"tool_result missing isError", `{"type":"tool_result","timestamp":"2026-01-01T00:00:00Z","toolCallId":"t1"}`, false},
		{"tool_result valid", `{"type":"tool_result","timestamp":"2026-01-01T00:00:00Z","toolCallId":"t1","isError":false}`, true},
		{"turn_end missing numbers", `{"type":"turn_end","timestamp":"2026-01-01T00:00:00Z","turnId":"t1","inputTokens":5}`, false},
		{"turn_end valid", `{"type":"turn_end","timestamp":"2026-01-01T00:00:00Z","turnId":"t1","inputTokens":5,"outputTokens":7,"durationMs":12.5}`, true},
		{"compaction valid", `{"type":"compaction","timestamp":"2026-01-01T00:00:00Z","summary":"s","messagesCompacted":4}`, true},
		{"memory_flush missing count", `{"type":"memory_flush","timestamp":"2026-01-01T00:00:00Z"}`, false},
		{"error valid", `{"type":"error","timestamp":"2026-01-01T00:00:00Z","code":"E1","message":"boom"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := transcript.Decode([]byte(tt.line))
			if tt.ok && err != nil {
				t.Errorf("Decode returned unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected decode error, got nil")
			}
		})
	}
}
