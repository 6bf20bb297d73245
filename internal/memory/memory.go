// Package memory defines the long-term memory contracts consumed by the
// compaction engine. Implementations live in modules/memory.
package memory

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a memory entry does not exist.
var ErrNotFound = errors.New("memory: entry not found")

// Category classifies an extracted memory.
type Category string

const (
	CategoryPreference Category = "preference"
	CategoryFact       Category = "fact"
)

// Entry is a piece of long-term knowledge extracted from a conversation.
// Save assigns ID and CreatedAt; callers leave them zero.
type Entry struct {
	ID        string
	Content   string
	Category  Category
	SessionID string
	CreatedAt time.Time
}

// Store persists memory entries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores the entry, assigning its ID and CreatedAt, and returns
	// the stored form.
	Save(ctx context.Context, e Entry) (Entry, error)
}

// Flusher is an optional capability: stores that buffer writes expose it
// so callers can force entries onto durable storage before depending on
// them.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Searcher is an optional capability for full-text retrieval, used by the
// inspection surfaces rather than the compaction engine.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Entry, error)
}
