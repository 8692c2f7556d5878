package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/facilitator/pkg/storage"
	"github.com/dukex/facilitator/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSetDelete(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte("v1")))
	require.NoError(t, store.Set(ctx, "k", []byte("v2")))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", string(value))

	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ValuesAreCopied(t *testing.T) {
	ctx := t.Context()
	store := memory.NewStore()

	input := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", input))
	input[0] = 'x'

	value, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(value))
}

func TestStore_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	store := memory.NewStore()

	changes, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Set(t.Context(), "a", []byte("1")))
	require.NoError(t, store.Delete(t.Context(), "a"))

	for _, want := range []string{"a", "a"} {
		select {
		case key := <-changes:
			assert.Equal(t, want, key)
		case <-time.After(time.Second):
			t.Fatal("no change received")
		}
	}

	cancel()

	assert.Eventually(t, func() bool {
		_, open := <-changes

		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestStore_Closed(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Set(t.Context(), "k", nil), storage.ErrClosed)
	assert.ErrorIs(t, store.HealthCheck(t.Context()), storage.ErrClosed)
	assert.NoError(t, store.Close())
}
