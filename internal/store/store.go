// Package store provides the SQLite snapshot history archive for claude-vigil.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Config holds store settings.
type Config struct {
	Path     string
	MaxConns int
	WALMode  bool
}

// Store wraps the SQLite database handle. Migrations run on open.
type Store struct {
	db *sql.DB
}

// NewStore opens the database and applies the schema.
func NewStore(cfg Config) (*Store, error) {
	dsn := cfg.Path
	if cfg.WALMode {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema if it does not exist.
func (s *Store) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS snapshots (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			taken_at        TEXT NOT NULL,
			taken_at_epoch  INTEGER NOT NULL,
			total_sessions  INTEGER NOT NULL,
			total_cost      REAL NOT NULL,
			max_tokens      INTEGER NOT NULL,
			payload         TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_epoch ON snapshots(taken_at_epoch);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
