package transcript

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Repair detects and removes a corrupted transcript tail left behind by a
// crash mid-append. Valid history is kept byte-for-byte; everything from
// the first invalid line onward is dropped. It reports whether the file
// was modified. Repairing a consistent file is a no-op, so Repair is
// idempotent.
func (s *Store) Repair(sessionID string) (bool, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(sessionID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("transcript: read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return false, nil
	}

	lines := bytes.Split(raw, []byte("\n"))

	// A file that does not end with a newline has an incomplete final
	// write. If the partial segment happens to be a complete entry it is
	// kept; otherwise it is discarded.
	if raw[len(raw)-1] != '\n' {
		last := lines[len(lines)-1]
		if _, err := Decode(last); err != nil {
			lines = lines[:len(lines)-1]
		}
	} else {
		// Drop the empty remainder after the trailing newline.
		lines = lines[:len(lines)-1]
	}

	// Keep the longest valid prefix.
	valid := len(lines)
	for i, line := range lines {
		if _, err := Decode(line); err != nil {
			valid = i
			break
		}
	}
	lines = lines[:valid]

	var repaired []byte
	if len(lines) > 0 {
		repaired = append(bytes.Join(lines, []byte("\n")), '\n')
	}
	if bytes.Equal(repaired, raw) {
		return false, nil
	}

	// The cached append handle points at the old content; drop it before
	// rewriting so subsequent appends reopen the repaired file.
	if err := s.dropHandleLocked(path); err != nil {
		return false, err
	}
	if err := writeFileAtomic(path, repaired); err != nil {
		return false, err
	}
	return true, nil
}

// writeFileAtomic writes content to a temporary file in the same directory
// and renames it into place.
func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("transcript: create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("transcript: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("transcript: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("transcript: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("transcript: rename %s: %w", path, err)
	}
	return nil
}
