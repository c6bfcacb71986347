package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/udisondev/blockregen/internal/config"
)

// Open returns the store selected by cfg.Driver. An empty driver or "none"
// disables the journal.
func Open(ctx context.Context, cfg config.JournalConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return Discard{}, nil
	case "sqlite":
		s, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres", "postgresql":
		p, err := OpenPostgres(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.Driver)
	}
}
