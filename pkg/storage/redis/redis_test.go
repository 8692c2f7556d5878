//go:build integration

package redis_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/facilitator/pkg/storage/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestStore(t *testing.T) *redis.Store {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	store, err := redis.NewStore(ctx, slog.Default(), "redis://"+endpoint+"/0")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func TestStore_GetSetDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := t.Context()

	_, ok, err := store.Get(ctx, "facilitator-workshops")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "facilitator-workshops", []byte(`[]`)))

	value, ok, err := store.Get(ctx, "facilitator-workshops")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", string(value))

	require.NoError(t, store.Delete(ctx, "facilitator-workshops"))

	_, ok, err = store.Get(ctx, "facilitator-workshops")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, store.HealthCheck(ctx))
}

func TestStore_Watch(t *testing.T) {
	store := setupTestStore(t)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	changes, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Set(t.Context(), "facilitator-sessions", []byte(`[]`)))

	select {
	case key := <-changes:
		assert.Equal(t, "facilitator-sessions", key)
	case <-time.After(5 * time.Second):
		t.Fatal("no change received")
	}
}
