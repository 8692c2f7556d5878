// Package storage defines the key-value store every entity family is
// persisted in.
package storage

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("store is closed")

// Store is a flat key-value store of serialized values. A missing key is
// reported with ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// Watcher is implemented by stores that can signal changes made by other
// writers. Watch emits changed keys until ctx is done. An empty key means a
// change could have touched any key.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}
