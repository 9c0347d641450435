package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/michaelbrown/sshmcp/internal/audit"

	_ "modernc.org/sqlite"
)

// Fixed-width UTC timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// ErrNotFound is returned when no entry matches an ID or prefix.
var ErrNotFound = errors.New("invocation not found")

// SQLiteStore implements audit.Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Concurrent tool calls write here; one connection also keeps ":memory:"
	// a single database.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, e *audit.Entry) error {
	if e.ID == "" {
		return errors.New("entry ID must be set")
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now().UTC()
	}

	args, err := json.Marshal(e.Arguments)
	if err != nil {
		return fmt.Errorf("marshaling arguments: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invocations (id, tool, arguments, result, is_error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Tool, string(args), e.Result, e.IsError,
		e.StartedAt.UTC().Format(timeLayout), e.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting invocation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*audit.Entry, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, tool, arguments, result, is_error, started_at, duration_ms
		FROM invocations WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Literal prefix match; LIKE would treat % and _ as wildcards.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tool, arguments, result, is_error, started_at, duration_ms
		FROM invocations WHERE substr(id, 1, length(?1)) = ?1 LIMIT 2`, id)
	if err != nil {
		return nil, fmt.Errorf("querying invocation: %w", err)
	}
	defer rows.Close()

	var matches []*audit.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous invocation prefix %q", id)
	}
}

func (s *SQLiteStore) List(ctx context.Context, opts audit.ListOptions) ([]audit.Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, tool, arguments, result, is_error, started_at, duration_ms FROM invocations WHERE 1=1`
	var args []any

	if opts.Tool != "" {
		query += ` AND tool = ?`
		args = append(args, opts.Tool)
	}
	if opts.ErrorsOnly {
		query += ` AND is_error = 1`
	}

	query += ` ORDER BY started_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invocations: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invocations WHERE started_at < ?`,
		before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning invocations: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Scanner interface to work with both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*audit.Entry, error) {
	var e audit.Entry
	var args, startedAt string
	err := s.Scan(&e.ID, &e.Tool, &args, &e.Result, &e.IsError, &startedAt, &e.DurationMS)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(args), &e.Arguments); err != nil {
		return nil, fmt.Errorf("unmarshaling arguments for %s: %w", e.ID, err)
	}
	e.StartedAt, _ = time.Parse(timeLayout, startedAt)
	return &e, nil
}
