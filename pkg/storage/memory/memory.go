// Package memory provides an in-process storage.Store.
package memory

import (
	"context"
	"sync"

	"github.com/dukex/facilitator/pkg/storage"
)

const watchBuffer = 64

// Store keeps values in a map. Every write is signalled to all watchers.
type Store struct {
	mu       sync.RWMutex
	values   map[string][]byte
	watchers map[chan string]struct{}
	closed   bool
}

func NewStore() *Store {
	return &Store{
		values:   make(map[string][]byte),
		watchers: make(map[chan string]struct{}),
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, storage.ErrClosed
	}

	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}

	return append([]byte(nil), value...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	s.values[key] = append([]byte(nil), value...)
	s.notify(key)

	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	if _, ok := s.values[key]; !ok {
		return nil
	}

	delete(s.values, key)
	s.notify(key)

	return nil
}

// Watch registers a watcher. Keys are dropped for a watcher that is not
// keeping up; the polling fallback covers them.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	ch := make(chan string, watchBuffer)
	s.watchers[ch] = struct{}{}

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		defer s.mu.Unlock()

		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
	}()

	return ch, nil
}

func (s *Store) HealthCheck(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return storage.ErrClosed
	}

	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	for ch := range s.watchers {
		close(ch)
		delete(s.watchers, ch)
	}

	return nil
}

// notify must be called with the write lock held.
func (s *Store) notify(key string) {
	for ch := range s.watchers {
		select {
		case ch <- key:
		default:
		}
	}
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Watcher = (*Store)(nil)
)
