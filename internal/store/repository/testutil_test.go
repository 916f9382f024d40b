package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/fortuna/roster/internal/store"
)

// setupTestDB starts a PostgreSQL container and applies the embedded
// migrations. Integration tests are skipped in -short mode.
func setupTestDB(t *testing.T) *store.Database {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("roster"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := store.NewDatabase(ctx, dsn, zap.NewNop())
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations(ctx))
	// second run is a no-op
	require.NoError(t, db.RunMigrations(ctx))

	return db
}
