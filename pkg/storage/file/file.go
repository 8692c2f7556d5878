// Package file provides a storage.Store keeping one JSON document per key
// under a root directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dukex/facilitator/pkg/storage"
	"github.com/fsnotify/fsnotify"
)

const (
	extension       = ".json"
	tempPrefix      = ".tmp-"
	defaultDebounce = 100 * time.Millisecond
)

// Store implements storage.Store on the file system.
type Store struct {
	root     string
	logger   *slog.Logger
	debounce time.Duration
}

type Option func(*Store)

// WithDebounce sets how long watch events are collected before they are
// emitted.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		s.debounce = d
	}
}

// NewStore creates the root directory if needed.
func NewStore(root string, logger *slog.Logger, opts ...Option) (*Store, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	if err := os.MkdirAll(cleanRoot, 0750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &Store{
		root:     cleanRoot,
		logger:   logger.With("module", "file_store"),
		debounce: defaultDebounce,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}

	return data, true, nil
}

// Set writes to a temporary file and renames it so readers never see a
// half written document.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(s.root, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for key %s: %w", key, err)
	}

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write key %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write key %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write key %s: %w", key, err)
	}

	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	return nil
}

// HealthCheck verifies the root directory exists.
func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (s *Store) Close() error {
	return nil
}

// Watch reports keys whose files were written, created, removed or renamed
// by any process. Bursts are coalesced for the debounce window.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(s.root); err != nil {
		_ = watcher.Close()

		return nil, fmt.Errorf("failed to watch %s: %w", s.root, err)
	}

	out := make(chan string, 64)

	go s.watchLoop(ctx, watcher, out)

	return out, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer func() {
		if err := watcher.Close(); err != nil {
			s.logger.Error("Failed to close file watcher", "error", err)
		}
	}()

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			key, ok := s.key(event.Name)
			if !ok {
				continue
			}

			pending[key] = struct{}{}

			debounceTimer.Reset(s.debounce)

		case <-debounceTimer.C:
			for key := range pending {
				select {
				case out <- key:
				case <-ctx.Done():
					return
				}

				delete(pending, key)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			s.logger.Warn("File watcher error", "error", err)
		}
	}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, url.PathEscape(key)+extension)
}

func (s *Store) key(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, extension) {
		return "", false
	}

	key, err := url.PathUnescape(strings.TrimSuffix(name, extension))
	if err != nil {
		return "", false
	}

	return key, true
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Watcher = (*Store)(nil)
)
