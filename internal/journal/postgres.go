package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// Postgres stores events in PostgreSQL.
type Postgres struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

// OpenPostgres connects to dsn and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := migratePool(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool}, nil
}

// migratePool runs goose over a database/sql handle backed by the pool's config.
func migratePool(ctx context.Context, pool *pgxpool.Pool) error {
	connStr := stdlib.RegisterConnConfig(pool.Config().ConnConfig)
	defer stdlib.UnregisterConnConfig(connStr)

	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	return RunMigrations(ctx, sqlDB, "postgres")
}

// Append inserts events in one batch. Duplicate ids are ignored.
func (p *Postgres) Append(ctx context.Context, events ...Event) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(
			`INSERT INTO regen_events (id, kind, world, x, y, z, block_id, definition_id, at_millis)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO NOTHING`,
			e.ID, string(e.Kind), e.World, e.X, e.Y, e.Z, e.BlockID, e.DefinitionID, e.AtMillis,
		)
	}

	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("appending %d events: %w", len(events), err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Event, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, kind, world, x, y, z, block_id, definition_id, at_millis
		 FROM regen_events ORDER BY at_millis DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent events: %w", err)
	}

	events, err := pgx.CollectRows(rows, scanPgEvent)
	if err != nil {
		return nil, fmt.Errorf("scanning recent events: %w", err)
	}
	return events, nil
}

// Each visits every event, oldest first.
func (p *Postgres) Each(ctx context.Context, fn func(Event) error) error {
	if p.closed.Load() {
		return ErrClosed
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, kind, world, x, y, z, block_id, definition_id, at_millis
		 FROM regen_events ORDER BY at_millis, id`,
	)
	if err != nil {
		return fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanPgEvent(rows)
		if err != nil {
			return fmt.Errorf("scanning event: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanPgEvent(row pgx.CollectableRow) (Event, error) {
	var e Event
	var kind string
	err := row.Scan(&e.ID, &kind, &e.World, &e.X, &e.Y, &e.Z, &e.BlockID, &e.DefinitionID, &e.AtMillis)
	e.Kind = Kind(kind)
	return e, err
}

// Close closes the pool.
func (p *Postgres) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.pool.Close()
	}
	return nil
}
