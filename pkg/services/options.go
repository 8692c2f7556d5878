package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/facilitator/pkg/eventbus"
	"github.com/dukex/facilitator/pkg/joincode"
	"github.com/google/uuid"
)

// DefaultJoinCodeAttempts bounds how many codes are drawn before giving up
// on finding one no open session uses.
const DefaultJoinCodeAttempts = 10

// Option configures a service.
type Option func(*options)

type options struct {
	publisher        eventbus.EventPublisher
	logger           *slog.Logger
	now              func() time.Time
	joinCodeAttempts int
	joinCode         joincode.Generator
}

func newOptions(opts []Option) options {
	o := options{
		logger:           slog.Default(),
		now:              time.Now,
		joinCodeAttempts: DefaultJoinCodeAttempts,
		joinCode:         joincode.Generate,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithEventPublisher publishes domain events after each successful mutation.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(o *options) {
		o.publisher = publisher
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithJoinCodeAttempts(attempts int) Option {
	return func(o *options) {
		if attempts > 0 {
			o.joinCodeAttempts = attempts
		}
	}
}

func WithJoinCodeGenerator(generate joincode.Generator) Option {
	return func(o *options) {
		o.joinCode = generate
	}
}

func (o options) publish(ctx context.Context, key string, event eventbus.Event) {
	if o.publisher == nil {
		return
	}

	if err := o.publisher.Publish(ctx, key, event); err != nil {
		o.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"key", key,
			"error", err)
	}
}

// newID returns a time-ordered unique id.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}
