package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidSessionID indicates a session id that cannot be used to build
// a transcript path.
var ErrInvalidSessionID = errors.New("transcript: invalid session id")

// Store is the append-only transcript log, one file per session under a
// base directory. It caches one open append-mode handle per path so that
// Sync can flush without reopening; Append does not fsync — durability
// checkpoints are the caller's responsibility via Sync.
//
// All methods are safe for concurrent use within one process. There is no
// cross-process lock.
type Store struct {
	dir string

	mu      sync.Mutex
	handles map[string]*os.File
}

// NewStore creates a Store writing transcripts under dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:     dir,
		handles: make(map[string]*os.File),
	}
}

// ValidateSessionID rejects ids that are empty or could escape the
// transcript directory.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSessionID)
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}

// Path returns the transcript file path for a session.
func (s *Store) Path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".jsonl")
}

// Append writes a single entry to the session's transcript.
func (s *Store) Append(sessionID string, entry Entry) error {
	return s.AppendBatch(sessionID, []Entry{entry})
}

// AppendBatch writes entries as consecutive newline-terminated lines in a
// single write call, so no entry in the batch is partially written relative
// to another. An empty batch is a no-op.
func (s *Store) AppendBatch(sessionID string, entries []Entry) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("transcript: encode %s entry: %w", e.Kind(), err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.handleLocked(sessionID)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("transcript: append to %s: %w", s.Path(sessionID), err)
	}
	return nil
}

// Sync forces a durability checkpoint: everything appended so far is
// flushed to physical storage.
func (s *Store) Sync(sessionID string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.handleLocked(sessionID)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("transcript: sync %s: %w", s.Path(sessionID), err)
	}
	return nil
}

// Read parses the full transcript for a session. A missing file yields an
// empty result. Parsing stops with an error at the first line that is not
// a valid entry; the error carries the file path and 1-based line number.
func (s *Store) Read(sessionID string) ([]Entry, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	path := s.Path(sessionID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("transcript: read %s: %w", path, err)
	}

	var entries []Entry
	for i, line := range splitLines(raw) {
		e, err := Decode(line)
		if err != nil {
			return nil, fmt.Errorf("transcript: %s line %d: %w", path, i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReadTail returns the last count entries in original order. It returns
// all entries if the log is shorter, and nothing for non-positive count.
func (s *Store) ReadTail(sessionID string, count int) ([]Entry, error) {
	if count <= 0 {
		if err := ValidateSessionID(sessionID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	entries, err := s.Read(sessionID)
	if err != nil {
		return nil, err
	}
	if len(entries) > count {
		entries = entries[len(entries)-count:]
	}
	return entries, nil
}

// Close releases all cached file handles. The store remains usable;
// handles are reopened lazily.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for path, f := range s.handles {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("transcript: close %s: %w", path, err))
		}
		delete(s.handles, path)
	}
	return errors.Join(errs...)
}

// handleLocked returns the cached append-mode handle for the session,
// opening it (and the containing directory) on first use. Caller holds s.mu.
func (s *Store) handleLocked(sessionID string) (*os.File, error) {
	path := s.Path(sessionID)
	if f, ok := s.handles[path]; ok {
		return f, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("transcript: create directory %s: %w", s.dir, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s: %w", path, err)
	}
	s.handles[path] = f
	return f, nil
}

// dropHandleLocked closes and forgets the cached handle for a path, if any.
// Used by Repair, which rewrites the file under the handle's feet.
func (s *Store) dropHandleLocked(path string) error {
	f, ok := s.handles[path]
	if !ok {
		return nil
	}
	delete(s.handles, path)
	if err := f.Close(); err != nil {
		return fmt.Errorf("transcript: close %s: %w", path, err)
	}
	return nil
}

// splitLines splits raw file content into physical lines, excluding the
// empty remainder after a trailing newline.
func splitLines(raw []byte) [][]byte {
	lines := bytes.Split(raw, []byte("\n"))
	if n := len(lines); n > 0 && len(lines[n-1]) == 0 {
		lines = lines[:n-1]
	}
	return lines
}
