// Package ledger keeps a SQLite record of staged items so that an external
// cleanup pass can find and delete them once no reader needs them anymore.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hengadev/graphpack/internal/staging"
)

var ErrLedgerUnavailable = errors.New("staging ledger unavailable")

const schema = `
CREATE TABLE IF NOT EXISTS staged_items (
	name       TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	purpose    TEXT NOT NULL,
	archive    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS staged_items_created_at ON staged_items (created_at);
`

// Ledger records staged items in a SQLite database.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLedgerUnavailable, path, err)
	}
	// One connection, so writers in this process never see SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema in %s: %v", ErrLedgerUnavailable, path, err)
	}
	return &Ledger{db: db}, nil
}

// Record implements staging.Recorder.
func (l *Ledger) Record(ctx context.Context, item staging.Item) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO staged_items (name, path, purpose, archive, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, item.Name, item.Path, string(item.Purpose), item.Archive, item.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record staged item '%s': %w", item.Name, err)
	}
	return nil
}

// Before returns the items created strictly before t, oldest first.
func (l *Ledger) Before(ctx context.Context, t time.Time) ([]staging.Item, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT name, path, purpose, archive, created_at FROM staged_items
		WHERE created_at < ?
		ORDER BY created_at
	`, t.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query staged items: %w", err)
	}
	defer rows.Close()

	var items []staging.Item
	for rows.Next() {
		var (
			item    staging.Item
			purpose string
		)
		if err := rows.Scan(&item.Name, &item.Path, &purpose, &item.Archive, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staged item: %w", err)
		}
		item.Purpose = staging.Purpose(purpose)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Forget removes the record of name.
func (l *Ledger) Forget(ctx context.Context, name string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM staged_items WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to forget staged item '%s': %w", name, err)
	}
	return nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
