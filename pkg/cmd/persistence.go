package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/facilitator/pkg/persistence/keyvalue"
	"github.com/dukex/facilitator/pkg/storage"
	"github.com/dukex/facilitator/pkg/storage/file"
	"github.com/dukex/facilitator/pkg/storage/memory"
	"github.com/dukex/facilitator/pkg/storage/postgresql"
	"github.com/dukex/facilitator/pkg/storage/redis"
	"github.com/dukex/facilitator/pkg/storage/sqlite"
)

var supportedStoreProviders = []string{"memory", "file", "redis", "postgres", "postgresql", "sqlite"}

// NewStore opens the store named by storeURL's scheme. A URL without a
// known scheme is treated as a file store directory.
func NewStore(ctx context.Context, logger *slog.Logger, storeURL string, watchDebounce time.Duration) (storage.Store, error) {
	provider := parseStoreProvider(storeURL)
	logger.InfoContext(ctx, "Opening store", "provider", provider)

	switch provider {
	case "memory":
		return memory.NewStore(), nil
	case "redis":
		return redis.NewStore(ctx, logger, storeURL)
	case "postgres", "postgresql":
		return postgresql.NewStore(ctx, logger, storeURL)
	case "sqlite":
		return sqlite.NewStore(ctx, logger, storeURL)
	default:
		return file.NewStore(storeURL, logger, file.WithDebounce(watchDebounce))
	}
}

// NewPersistence opens the store and builds the repositories over it. It
// panics when the store cannot be opened.
func NewPersistence(ctx context.Context, logger *slog.Logger, storeURL string, watchDebounce time.Duration) *keyvalue.Persistence {
	store, err := NewStore(ctx, logger, storeURL, watchDebounce)
	if err != nil {
		panic(fmt.Errorf("failed to open store: %w", err))
	}

	return keyvalue.NewPersistence(store)
}

func parseStoreProvider(storeURL string) string {
	parts := strings.Split(storeURL, "://")

	provider := parts[0]
	for _, supported := range supportedStoreProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
