package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

// SQLite stores events in a local SQLite file.
type SQLite struct {
	db     *sql.DB
	closed atomic.Bool
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty journal path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}

	if err := RunMigrations(ctx, db, "sqlite3"); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// Append inserts events in one transaction. Duplicate ids are ignored.
func (s *SQLite) Append(ctx context.Context, events ...Event) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning journal tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO regen_events (id, kind, world, x, y, z, block_id, definition_id, at_millis)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.ID, string(e.Kind), e.World, e.X, e.Y, e.Z, e.BlockID, e.DefinitionID, e.AtMillis); err != nil {
			return fmt.Errorf("inserting event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %d events: %w", len(events), err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, world, x, y, z, block_id, definition_id, at_millis
		 FROM regen_events ORDER BY at_millis DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanSQLEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Each visits every event, oldest first.
func (s *SQLite) Each(ctx context.Context, fn func(Event) error) error {
	if s.closed.Load() {
		return ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, world, x, y, z, block_id, definition_id, at_millis
		 FROM regen_events ORDER BY at_millis, id`)
	if err != nil {
		return fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanSQLEvent(rows)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanSQLEvent(rows *sql.Rows) (Event, error) {
	var e Event
	var kind string
	if err := rows.Scan(&e.ID, &kind, &e.World, &e.X, &e.Y, &e.Z, &e.BlockID, &e.DefinitionID, &e.AtMillis); err != nil {
		return Event{}, fmt.Errorf("scanning event: %w", err)
	}
	e.Kind = Kind(kind)
	return e, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
