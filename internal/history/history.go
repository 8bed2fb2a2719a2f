// Package history keeps a local record of launches, completed hands, and
// fairness verifications in a SQLite database under the data directory.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

// keepEntries bounds the table size; older rows are pruned on insert.
const keepEntries = 1000

// Entry is one recorded event.
type Entry struct {
	ID        int64
	Kind      string // "launch", "poker", "verify", "transfer"
	Ref       string // mint address, game id, or tx signature
	Detail    string
	CreatedAt time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history path is required")
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	ref TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS history_kind_idx ON history (kind, created_at);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one entry and prunes the oldest rows past the cap.
func (s *Store) Record(ctx context.Context, kind, ref, detail string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history is not configured")
	}
	if strings.TrimSpace(kind) == "" {
		return fmt.Errorf("history kind is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (kind, ref, detail, created_at) VALUES (?, ?, ?, ?)`,
		kind, ref, detail, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`,
		keepEntries)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-empty kind filters.
func (s *Store) Recent(ctx context.Context, kind string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("history is not configured")
	}
	if limit <= 0 {
		limit = 20
	}

	var rows *sql.Rows
	var err error
	if kind != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, kind, ref, detail, created_at FROM history WHERE kind = ? ORDER BY id DESC LIMIT ?`,
			kind, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, kind, ref, detail, created_at FROM history ORDER BY id DESC LIMIT ?`,
			limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Kind, &e.Ref, &e.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if t, err := time.Parse(timeFormat, created); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
