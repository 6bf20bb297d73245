// Package sqlite implements the long-term memory store on SQLite. It
// uses modernc.org/sqlite (pure Go, no CGO) with FTS5 full-text search
// and WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/memory"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Compile-time interface guards.
var (
	_ memory.Store    = (*Store)(nil)
	_ memory.Flusher  = (*Store)(nil)
	_ memory.Searcher = (*Store)(nil)
)

// Store persists memory entries in a SQLite database.
type Store struct {
	db     *sql.DB
	config Config
	logger *slog.Logger
	newID  func() string
	now    func() time.Time
}

// Open opens (creating if needed) the database at cfg.Path and migrates
// the schema. The caller owns the returned store and must Close it.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}

	// SQLite handles one writer at a time; limit the pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	ctx := context.TODO()
	if cfg.walEnabled() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:     db,
		config: cfg,
		logger: logger.With("component", "memory.sqlite"),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	s.logger.Info("memory store opened",
		"path", cfg.Path,
		"wal", cfg.walEnabled(),
	)
	return s, nil
}

// DefaultPath returns the database location inside a data directory.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, defaultDBFile)
}

// Ping verifies the database connection and FTS5 availability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM memories_fts").Scan(&n); err != nil {
		return fmt.Errorf("sqlite: FTS5 not available: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
