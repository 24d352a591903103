// Package journal keeps a local SQLite record of every trade submitted
// through the client, so agents (and humans) can review what was actually
// sent without a backend round trip.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TIMESTAMP NOT NULL,
	action     TEXT NOT NULL,
	base       TEXT NOT NULL,
	quote      TEXT NOT NULL,
	amount     TEXT NOT NULL,
	chain      TEXT NOT NULL,
	summary    TEXT NOT NULL,
	status     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades(created_at DESC);
`

// Entry is one submitted trade.
type Entry struct {
	ID        int64
	CreatedAt time.Time
	Action    string
	Base      string
	Quote     string
	Amount    string
	Chain     string
	Summary   string
	Status    string // "submitted" or "failed"
}

// Journal wraps the SQLite connection.
type Journal struct {
	db *sql.DB
}

// Open opens (and migrates) the journal at path. ":memory:" is accepted for
// tests.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// Single local writer; one connection avoids table-lock races.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record appends an entry and fills in its ID and timestamp.
func (j *Journal) Record(ctx context.Context, e *Entry) error {
	e.CreatedAt = time.Now().UTC()
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO trades (created_at, action, base, quote, amount, chain, summary, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CreatedAt, e.Action, e.Base, e.Quote, e.Amount, e.Chain, e.Summary, e.Status)
	if err != nil {
		return fmt.Errorf("record trade: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// Recent returns the newest entries, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, created_at, action, base, quote, amount, chain, summary, status
		 FROM trades ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Action, &e.Base, &e.Quote, &e.Amount, &e.Chain, &e.Summary, &e.Status); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}
