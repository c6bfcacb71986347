package testutil

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresDSN starts a PostgreSQL 16 testcontainer and returns its DSN.
// Uses the postgres module with BasicWaitStrategies (log occurrence(2) + port check).
// The container is terminated on test cleanup. The test is skipped in short
// mode or when no container runtime is available.
func PostgresDSN(tb testing.TB) string {
	tb.Helper()
	if testing.Short() {
		tb.Skip("postgres container test skipped in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		tb.Skipf("postgres container unavailable: %v", err)
	}

	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			tb.Logf("terminating postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tb.Fatalf("getting connection string: %v", err)
	}
	return dsn
}
