package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"markethq/rategate/pkg/limits"
)

// SQLiteBackend journals window state in a single SQLite file. Suitable for
// single-process deployments, which is the only deployment shape this
// engine supports anyway.
//
// The database runs in WAL mode so checkpoint writes do not block
// concurrent reads.
type SQLiteBackend struct {
	db *sql.DB

	saveStmt    *sql.Stmt
	loadStmt    *sql.Stmt
	listStmt    *sql.Stmt
	deleteStmt  *sql.Stmt
	cleanupStmt *sql.Stmt
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default 5s.
	BusyTimeout time.Duration
}

// NewSQLiteBackend opens (creating if needed) a state journal with default
// settings.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteConfig{Path: path})
}

// NewSQLiteBackendWithConfig opens a state journal with custom settings.
func NewSQLiteBackendWithConfig(cfg SQLiteConfig) (*SQLiteBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open state journal: %w", err)
	}

	b := &SQLiteBackend{db: db}
	if err := b.init(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) init() error {
	const schema = `
CREATE TABLE IF NOT EXISTS window_states (
	venue      TEXT NOT NULL,
	category   TEXT NOT NULL,
	state      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (venue, category)
);
CREATE INDEX IF NOT EXISTS idx_window_states_updated ON window_states(updated_at);
`
	if _, err := b.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var err error
	if b.saveStmt, err = b.db.Prepare(
		`INSERT OR REPLACE INTO window_states (venue, category, state, updated_at) VALUES (?, ?, ?, ?)`,
	); err != nil {
		return fmt.Errorf("failed to prepare save: %w", err)
	}
	if b.loadStmt, err = b.db.Prepare(
		`SELECT state FROM window_states WHERE venue = ? AND category = ?`,
	); err != nil {
		return fmt.Errorf("failed to prepare load: %w", err)
	}
	if b.listStmt, err = b.db.Prepare(
		`SELECT state FROM window_states WHERE venue = ? ORDER BY category`,
	); err != nil {
		return fmt.Errorf("failed to prepare list: %w", err)
	}
	if b.deleteStmt, err = b.db.Prepare(
		`DELETE FROM window_states WHERE venue = ? AND category = ?`,
	); err != nil {
		return fmt.Errorf("failed to prepare delete: %w", err)
	}
	if b.cleanupStmt, err = b.db.Prepare(
		`DELETE FROM window_states WHERE updated_at < ?`,
	); err != nil {
		return fmt.Errorf("failed to prepare cleanup: %w", err)
	}
	return nil
}

// Save persists one category's state as a JSON document.
func (b *SQLiteBackend) Save(ctx context.Context, state limits.CategoryState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if _, err := b.saveStmt.ExecContext(ctx, state.Venue, state.Category, string(doc), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save state for %s/%s: %w", state.Venue, state.Category, err)
	}
	return nil
}

// Load retrieves one category's state, or nil when absent.
func (b *SQLiteBackend) Load(ctx context.Context, venue, category string) (*limits.CategoryState, error) {
	var doc string
	err := b.loadStmt.QueryRowContext(ctx, venue, category).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state for %s/%s: %w", venue, category, err)
	}

	var state limits.CategoryState
	if err := json.Unmarshal([]byte(doc), &state); err != nil {
		return nil, fmt.Errorf("failed to decode state for %s/%s: %w", venue, category, err)
	}
	return &state, nil
}

// List returns every stored state for a venue.
func (b *SQLiteBackend) List(ctx context.Context, venue string) ([]limits.CategoryState, error) {
	rows, err := b.listStmt.QueryContext(ctx, venue)
	if err != nil {
		return nil, fmt.Errorf("failed to list states for %s: %w", venue, err)
	}
	defer rows.Close()

	var out []limits.CategoryState
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan state row: %w", err)
		}
		var state limits.CategoryState
		if err := json.Unmarshal([]byte(doc), &state); err != nil {
			return nil, fmt.Errorf("failed to decode state row: %w", err)
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

// Delete removes one category's record.
func (b *SQLiteBackend) Delete(ctx context.Context, venue, category string) error {
	if _, err := b.deleteStmt.ExecContext(ctx, venue, category); err != nil {
		return fmt.Errorf("failed to delete state for %s/%s: %w", venue, category, err)
	}
	return nil
}

// Cleanup removes records not updated since olderThan.
func (b *SQLiteBackend) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := b.cleanupStmt.ExecContext(ctx, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up stale states: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// Close releases prepared statements and the database handle.
func (b *SQLiteBackend) Close() error {
	for _, stmt := range []*sql.Stmt{b.saveStmt, b.loadStmt, b.listStmt, b.deleteStmt, b.cleanupStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return b.db.Close()
}
