package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mnemo-ai/mnemo/internal/memory"
)

// Save stores the entry, assigning its ID and CreatedAt, and returns the
// stored form. The FTS5 index is updated via triggers.
func (s *Store) Save(ctx context.Context, e memory.Entry) (memory.Entry, error) {
	if e.Content == "" {
		return memory.Entry{}, fmt.Errorf("sqlite: save: content is empty")
	}
	if e.Category != memory.CategoryPreference && e.Category != memory.CategoryFact {
		return memory.Entry{}, fmt.Errorf("sqlite: save: unknown category %q", e.Category)
	}

	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memories (id, session_id, category, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, string(e.Category), e.Content,
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return memory.Entry{}, fmt.Errorf("sqlite: save memory: %w", err)
	}
	return e, nil
}

// Flush forces buffered WAL pages onto the main database file so saved
// entries survive a crash of the host process.
func (s *Store) Flush(ctx context.Context) error {
	if !s.config.walEnabled() {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("sqlite: wal checkpoint: %w", err)
	}
	return nil
}

// Search retrieves up to limit entries matching the query using FTS5
// full-text search, best match first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]memory.Entry, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.session_id, m.category, m.content, m.created_at
		FROM memories_fts
		JOIN memories m ON m.rowid = memories_fts.rowid
		WHERE memories_fts MATCH ?
		ORDER BY rank
		LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search memories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// BySession returns all entries extracted from the given session, oldest
// first.
func (s *Store) BySession(ctx context.Context, sessionID string) ([]memory.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, category, content, created_at
		FROM memories
		WHERE session_id = ?
		ORDER BY created_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: memories by session: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// Delete removes an entry by ID. Returns memory.ErrNotFound if the entry
// does not exist.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("sqlite: delete memory: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return memory.ErrNotFound
	}
	return nil
}

// Len returns the total number of stored entries.
func (s *Store) Len() int {
	var count int
	if err := s.db.QueryRowContext(context.TODO(), "SELECT COUNT(*) FROM memories").Scan(&count); err != nil {
		s.logger.Error("count memories failed", "error", err)
		return 0
	}
	return count
}

func scanEntries(rows *sql.Rows) ([]memory.Entry, error) {
	var entries []memory.Entry
	for rows.Next() {
		var (
			e            memory.Entry
			category     string
			createdAtStr string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &category, &e.Content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("sqlite: scan memory: %w", err)
		}
		e.Category = memory.Category(category)

		if createdAtStr != "" {
			t, err := time.Parse(time.RFC3339Nano, createdAtStr)
			if err != nil {
				return nil, fmt.Errorf("sqlite: parse created_at %q: %w", createdAtStr, err)
			}
			e.CreatedAt = t
		}

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: scan memory rows: %w", err)
	}
	return entries, nil
}
