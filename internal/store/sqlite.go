package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS outlines (
	doc_id       TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	format       TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	headings     INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	result_json  TEXT NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outlines_hash ON outlines(content_hash, format);
CREATE INDEX IF NOT EXISTS idx_outlines_created ON outlines(created_at);
`

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Summary is a list row without the full result body.
type Summary struct {
	DocID       string    `json:"doc_id"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	Title       string    `json:"title"`
	Headings    int       `json:"headings"`
	Failed      bool      `json:"failed"`
	CreatedAt   time.Time `json:"created_at"`
}

// SQLiteStore indexes results in a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. Use ":memory:" for
// a throwaway store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outlines (doc_id, filename, content_hash, format, title, headings, failed, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			filename = excluded.filename,
			content_hash = excluded.content_hash,
			format = excluded.format,
			title = excluded.title,
			headings = excluded.headings,
			failed = excluded.failed,
			result_json = excluded.result_json,
			created_at = excluded.created_at`,
		rec.DocID, rec.Filename, rec.ContentHash, FormatOf(rec.Filename), rec.Result.Title, len(rec.Result.Outline),
		boolInt(rec.Result.Failed()), string(body), rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert outline %s: %w", rec.DocID, err)
	}
	return nil
}

// Get returns the full record for docID, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, docID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, filename, content_hash, result_json, created_at
		FROM outlines WHERE doc_id = ?`, docID)
	return scanRecord(row)
}

// FindByHash returns the most recent successful record with the given
// content hash and format, or ErrNotFound. The parser is chosen by
// extension, so the same bytes under another format are a different
// document.
func (s *SQLiteStore) FindByHash(ctx context.Context, hash, format string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, filename, content_hash, result_json, created_at
		FROM outlines WHERE content_hash = ? AND format = ? AND failed = 0
		ORDER BY created_at DESC LIMIT 1`, hash, format)
	return scanRecord(row)
}

// List returns summaries newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, filename, content_hash, title, headings, failed, created_at
		FROM outlines ORDER BY created_at DESC, doc_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list outlines: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var failed int
		var created string
		if err := rows.Scan(&sum.DocID, &sum.Filename, &sum.ContentHash, &sum.Title, &sum.Headings, &failed, &created); err != nil {
			return nil, fmt.Errorf("scan outline: %w", err)
		}
		sum.Failed = failed != 0
		sum.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes docID. Deleting an unknown ID returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM outlines WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("delete outline %s: %w", docID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete outline %s: %w", docID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(row *sql.Row) (Record, error) {
	var rec Record
	var body, created string
	if err := row.Scan(&rec.DocID, &rec.Filename, &rec.ContentHash, &body, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("scan outline: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &rec.Result); err != nil {
		return Record{}, fmt.Errorf("decode outline %s: %w", rec.DocID, err)
	}
	rec.CreatedAt, _ = time.Parse(timeLayout, created)
	return rec, nil
}

// FormatOf is the lowercased extension of filename, including the dot.
func FormatOf(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
