package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidSessionID indicates a session id unusable as a file name.
var ErrInvalidSessionID = errors.New("conversation: invalid session id")

// FileStore persists one JSON document per session under a directory,
// written atomically via temp-file-then-rename.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

func validateSessionID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}

// Save replaces the stored conversation for its session.
func (s *FileStore) Save(_ context.Context, conv *Conversation) error {
	if err := validateSessionID(conv.SessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("conversation: encode %s: %w", conv.SessionID, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("conversation: create directory %s: %w", s.dir, err)
	}

	path := s.path(conv.SessionID)
	tmp, err := os.CreateTemp(s.dir, "."+conv.SessionID+"-*.json")
	if err != nil {
		return fmt.Errorf("conversation: create temp file in %s: %w", s.dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("conversation: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("conversation: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("conversation: rename %s: %w", path, err)
	}
	return nil
}

// Load returns the stored conversation, or an empty one if none exists.
func (s *FileStore) Load(_ context.Context, sessionID string) (*Conversation, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Conversation{SessionID: sessionID}, nil
		}
		return nil, fmt.Errorf("conversation: read %s: %w", s.path(sessionID), err)
	}

	var conv Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("conversation: parse %s: %w", s.path(sessionID), err)
	}
	if conv.SessionID == "" {
		conv.SessionID = sessionID
	}
	return &conv, nil
}
