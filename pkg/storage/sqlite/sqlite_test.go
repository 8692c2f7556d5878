package sqlite_test

import (
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dukex/facilitator/pkg/storage/sqlbase"
	"github.com/dukex/facilitator/pkg/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "facilitator.db")

	store, err := sqlite.NewStore(t.Context(), slog.Default(), "sqlite://"+path)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store, path
}

func TestNewStore_Migrations(t *testing.T) {
	_, path := setupStore(t)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)

	defer func() {
		_ = db.Close()
	}()

	version, err := sqlbase.NewMigrationManager(slog.Default(), db, sqlbase.SQLite, map[int]string{}).CurrentVersion(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "facilitator.db")

	store, err := sqlite.NewStore(ctx, slog.Default(), "sqlite://"+path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "facilitator-sessions", []byte(`[]`)))
	require.NoError(t, store.Close())

	reopened, err := sqlite.NewStore(ctx, slog.Default(), "sqlite://"+path)
	require.NoError(t, err)

	defer func() {
		_ = reopened.Close()
	}()

	value, ok, err := reopened.Get(ctx, "facilitator-sessions")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", string(value))
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := t.Context()
	store, _ := setupStore(t)

	_, ok, err := store.Get(ctx, "facilitator-workshops")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "facilitator-workshops", []byte(`["a"]`)))
	require.NoError(t, store.Set(ctx, "facilitator-workshops", []byte(`["b"]`)))

	value, ok, err := store.Get(ctx, "facilitator-workshops")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["b"]`, string(value))

	require.NoError(t, store.Delete(ctx, "facilitator-workshops"))
	require.NoError(t, store.Delete(ctx, "facilitator-workshops"))

	_, ok, err = store.Get(ctx, "facilitator-workshops")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, store.HealthCheck(ctx))
}

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := sqlite.NewStore(t.Context(), slog.Default(), "sqlite://")
	assert.Error(t, err)
}
