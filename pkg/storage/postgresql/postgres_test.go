//go:build integration

package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/facilitator/pkg/storage/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = postgresContainer.Terminate(context.Background())
	}

	os.Exit(code)
}

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"kv_entries", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestStore(t *testing.T) (*postgresql.Store, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("facilitator_test"),
			postgres.WithUsername("facilitator"),
			postgres.WithPassword("facilitator"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := postgresql.NewStore(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
		dropDb(ctx, t, databaseURL)
		cancel()
	})

	return store, ctx, databaseURL
}

func TestNewStore_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestStore(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		_ = db.Close()
	}()

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestStore_GetSetDelete(t *testing.T) {
	store, ctx, _ := setupTestStore(t)

	_, ok, err := store.Get(ctx, "facilitator-sessions")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "facilitator-sessions", []byte(`[{"id":"s1"}]`)))
	require.NoError(t, store.Set(ctx, "facilitator-sessions", []byte(`[{"id":"s2"}]`)))

	value, ok, err := store.Get(ctx, "facilitator-sessions")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"s2"}]`, string(value))

	require.NoError(t, store.Delete(ctx, "facilitator-sessions"))
	require.NoError(t, store.Delete(ctx, "facilitator-sessions"))

	_, ok, err = store.Get(ctx, "facilitator-sessions")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Watch(t *testing.T) {
	store, ctx, _ := setupTestStore(t)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, err := store.Watch(watchCtx)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "session-workshop-s1", []byte(`{}`)))

	select {
	case key := <-changes:
		assert.Equal(t, "session-workshop-s1", key)
	case <-time.After(10 * time.Second):
		t.Fatal("no notification received")
	}
}
