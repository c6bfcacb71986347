package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/blockregen/internal/testutil"
)

func TestPostgres_Store(t *testing.T) {
	dsn := testutil.PostgresDSN(t)
	ctx := context.Background()

	store, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	exerciseStore(t, store)

	// Migrations are idempotent across reconnects.
	again, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}
