// Package ticking advances the timers of running sessions. Exactly one
// owner should tick at a time; a Lease decides which.
package ticking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/facilitator/pkg/models"
	"github.com/robfig/cron/v3"
)

// DefaultInterval is one timer second.
const DefaultInterval = time.Second

var ErrAlreadyStarted = errors.New("ticking owner already started")

// Sessions is the part of the session service the owner drives.
type Sessions interface {
	RunningSessions(ctx context.Context) ([]*models.Session, error)
	Tick(ctx context.Context, id string) (*models.Session, error)
}

type Option func(*Owner)

func WithInterval(d time.Duration) Option {
	return func(o *Owner) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithLease replaces the default LocalLease.
func WithLease(lease Lease) Option {
	return func(o *Owner) {
		o.lease = lease
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Owner) {
		o.logger = logger
	}
}

// Owner ticks every running session once per interval while it holds the
// lease.
type Owner struct {
	sessions Sessions
	lease    Lease
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
	owning bool
}

func NewOwner(sessions Sessions, opts ...Option) *Owner {
	o := &Owner{
		sessions: sessions,
		lease:    NewLocalLease(),
		interval: DefaultInterval,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	o.logger = o.logger.With("module", "ticking_owner")

	return o
}

// Start schedules ticks until Stop. Intervals below one second are rounded
// up by the scheduler.
func (o *Owner) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cron != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	spec := fmt.Sprintf("@every %s", o.interval)
	if _, err := c.AddFunc(spec, func() {
		if _, err := o.TickOnce(ctx); err != nil && ctx.Err() == nil {
			o.logger.ErrorContext(ctx, "Tick failed", "error", err)
		}
	}); err != nil {
		cancel()

		return fmt.Errorf("failed to schedule ticks: %w", err)
	}

	o.cron = c
	o.cancel = cancel
	c.Start()

	o.logger.InfoContext(ctx, "Ticking owner started", "interval", o.interval)

	return nil
}

// Stop waits for a running tick to finish and gives up the lease.
func (o *Owner) Stop(ctx context.Context) error {
	o.mu.Lock()
	c, cancel := o.cron, o.cancel
	o.cron, o.cancel = nil, nil
	o.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}

	cancel()

	o.logger.InfoContext(ctx, "Ticking owner stopped")

	return o.lease.Release(ctx)
}

// TickOnce advances every running session by one tick if the lease is held
// and reports how many sessions were ticked.
func (o *Owner) TickOnce(ctx context.Context) (int, error) {
	held, err := o.lease.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire ticking lease: %w", err)
	}

	o.logOwnership(ctx, held)

	if !held {
		return 0, nil
	}

	sessions, err := o.sessions.RunningSessions(ctx)
	if err != nil {
		return 0, err
	}

	var (
		ticked int
		errs   []error
	)

	for _, session := range sessions {
		if _, err := o.sessions.Tick(ctx, session.ID); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", session.ID, err))

			continue
		}

		ticked++
	}

	return ticked, errors.Join(errs...)
}

func (o *Owner) logOwnership(ctx context.Context, held bool) {
	o.mu.Lock()
	changed := held != o.owning
	o.owning = held
	o.mu.Unlock()

	if !changed {
		return
	}

	if held {
		o.logger.InfoContext(ctx, "Acquired ticking lease")
	} else {
		o.logger.InfoContext(ctx, "Lost ticking lease")
	}
}
