// Package notifier keeps session views in sync. Subscribers receive the
// current session snapshot when a change is signalled and at a fixed
// interval, so a missed signal costs at most one interval of staleness.
package notifier

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukex/facilitator/pkg/eventbus"
	"github.com/dukex/facilitator/pkg/events"
	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/persistence"
	"github.com/dukex/facilitator/pkg/storage"
)

// DefaultInterval is the polling fallback between change signals.
const DefaultInterval = time.Second

var ErrClosed = errors.New("notifier is closed")

// Source reads the current snapshot of a session. It reports an absent
// session with a persistence not-found error.
type Source interface {
	Snapshot(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
}

// Handler receives snapshots. A nil snapshot means the session does not
// exist (anymore). Handlers run on the subscription's goroutine, one at a
// time.
type Handler func(ctx context.Context, snapshot *models.SessionSnapshot)

type Option func(*Notifier)

// WithInterval sets the polling fallback interval.
func WithInterval(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// Notifier fans change signals out to session subscriptions.
type Notifier struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

type subscription struct {
	sessionID string
	signal    chan struct{}
	done      chan struct{}
	once      sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func New(source Source, opts ...Option) *Notifier {
	n := &Notifier{
		source:   source,
		interval: DefaultInterval,
		logger:   slog.Default(),
		subs:     make(map[string]map[*subscription]struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Subscribe delivers the session's snapshot to handler right away, then on
// every change signal and at each interval, until ctx is done, the returned
// cancel func is called or the notifier is closed.
func (n *Notifier) Subscribe(ctx context.Context, sessionID string, handler Handler) (func(), error) {
	sub := &subscription{
		sessionID: sessionID,
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()

		return nil, ErrClosed
	}

	if n.subs[sessionID] == nil {
		n.subs[sessionID] = make(map[*subscription]struct{})
	}

	n.subs[sessionID][sub] = struct{}{}
	n.wg.Add(1)
	n.mu.Unlock()

	go n.run(ctx, sub, handler)

	return sub.stop, nil
}

func (n *Notifier) run(ctx context.Context, sub *subscription, handler Handler) {
	defer n.wg.Done()
	defer n.remove(sub)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	n.deliver(ctx, sub, handler)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-sub.signal:
		case <-ticker.C:
		}

		n.deliver(ctx, sub, handler)
	}
}

func (n *Notifier) deliver(ctx context.Context, sub *subscription, handler Handler) {
	snapshot, err := n.source.Snapshot(ctx, sub.sessionID)
	if err != nil {
		if !persistence.IsNotFound(err) {
			n.logger.WarnContext(ctx, "Failed to read session snapshot", "session_id", sub.sessionID, "error", err)

			return
		}

		snapshot = nil
	}

	select {
	case <-sub.done:
		return
	default:
	}

	handler(ctx, snapshot)
}

func (n *Notifier) remove(sub *subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.subs[sub.sessionID], sub)

	if len(n.subs[sub.sessionID]) == 0 {
		delete(n.subs, sub.sessionID)
	}
}

// Notify wakes every subscription of the session.
func (n *Notifier) Notify(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for sub := range n.subs[sessionID] {
		sub.wake()
	}
}

// NotifyAll wakes every subscription.
func (n *Notifier) NotifyAll() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, subs := range n.subs {
		for sub := range subs {
			sub.wake()
		}
	}
}

// Attach turns session events from the bus into change signals. It must be
// called before the bus subscribes.
func (n *Notifier) Attach(bus eventbus.EventSubscriber) error {
	for _, eventType := range events.SessionEvents() {
		err := bus.Handle(eventType, func(_ context.Context, event any) error {
			if scoped, ok := event.(events.SessionScoped); ok && scoped.GetSessionID() != "" {
				n.Notify(scoped.GetSessionID())
			} else {
				n.NotifyAll()
			}

			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Watch turns store change notifications into change signals until ctx is
// done.
func (n *Notifier) Watch(ctx context.Context, watcher storage.Watcher) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}

	keys, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}

	n.wg.Add(1)

	go func() {
		defer n.wg.Done()

		for {
			select {
			case <-n.done:
				return
			case key, ok := <-keys:
				if !ok {
					return
				}

				n.signalKey(key)
			}
		}
	}()

	return nil
}

func (n *Notifier) signalKey(key string) {
	switch {
	case key == "", key == persistence.SessionsKey:
		n.NotifyAll()
	case strings.HasPrefix(key, persistence.SessionWorkshopPrefix):
		n.Notify(strings.TrimPrefix(key, persistence.SessionWorkshopPrefix))
	}
}

// Done is closed once the notifier is closed.
func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

// Close stops every subscription and watch and waits for their goroutines.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()

		return
	}

	n.closed = true
	close(n.done)

	for _, subs := range n.subs {
		for sub := range subs {
			sub.stop()
		}
	}
	n.mu.Unlock()

	n.wg.Wait()
}
