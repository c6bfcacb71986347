package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/udisondev/blockregen/internal/journal/migrations"
)

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// RunMigrations applies the embedded migrations with the given goose dialect.
func RunMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
