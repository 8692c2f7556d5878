// Package postgresql provides a storage.Store backed by PostgreSQL with
// LISTEN/NOTIFY change propagation.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/facilitator/pkg/storage"
	"github.com/dukex/facilitator/pkg/storage/sqlbase"
	"github.com/lib/pq"
)

// ChangesChannel is the NOTIFY channel every write signals its key on.
const ChangesChannel = "facilitator_changes"

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS kv_entries (
				key TEXT PRIMARY KEY,
				value BYTEA NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	}
}

// Store implements storage.Store and storage.Watcher for PostgreSQL.
type Store struct {
	db          *sql.DB
	databaseURL string
	logger      *slog.Logger
}

// NewStore connects, pings and migrates the database.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, sqlbase.Postgres, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{
		db:          database,
		databaseURL: databaseURL,
		logger:      logger,
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_entries WHERE key = $1", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	return value, true, nil
}

// Set upserts the value and notifies listeners in the same transaction, so
// the notification is only delivered once the write is visible.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		`, key, value)
		if err != nil {
			return fmt.Errorf("failed to set key %s: %w", key, err)
		}

		return notify(ctx, tx, key)
	})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = $1", key)
		if err != nil {
			return fmt.Errorf("failed to delete key %s: %w", key, err)
		}

		if rows, err := result.RowsAffected(); err == nil && rows == 0 {
			return nil
		}

		return notify(ctx, tx, key)
	})
}

// Watch listens on ChangesChannel with a dedicated connection. After a
// reconnect an empty key is emitted since notifications may have been lost.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	listener := pq.NewListener(s.databaseURL, 10*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			s.logger.Warn("PostgreSQL listener event", "event", event, "error", err)
		}
	})

	if err := listener.Listen(ChangesChannel); err != nil {
		_ = listener.Close()

		return nil, fmt.Errorf("failed to listen on %s: %w", ChangesChannel, err)
	}

	out := make(chan string, 64)

	go func() {
		defer close(out)
		defer func() {
			if err := listener.Close(); err != nil {
				s.logger.Error("Failed to close PostgreSQL listener", "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}

				key := ""
				if n != nil {
					key = n.Extra
				}

				select {
				case out <- key:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func notify(ctx context.Context, tx *sql.Tx, key string) error {
	_, err := tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", ChangesChannel, key)
	if err != nil {
		return fmt.Errorf("failed to notify change of key %s: %w", key, err)
	}

	return nil
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Watcher = (*Store)(nil)
)
