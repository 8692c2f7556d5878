package main

import (
	"context"
	"log/slog"

	"github.com/dukex/facilitator/pkg/cmd"
	"github.com/dukex/facilitator/pkg/config"
	"github.com/dukex/facilitator/pkg/eventbus"
	"github.com/dukex/facilitator/pkg/log"
	"github.com/dukex/facilitator/pkg/persistence/keyvalue"
	"github.com/dukex/facilitator/pkg/services"
	cli "github.com/urfave/cli/v3"
)

// app holds the services one CLI invocation works with.
type app struct {
	logger      *slog.Logger
	sync        *config.SyncConfig
	persistence *keyvalue.Persistence
	eventBus    eventbus.EventBus

	workshops  *services.Workshop
	publishing *services.Publishing
	sessions   *services.Session
	history    *services.History
	responses  *services.Responses
}

func newApp(ctx context.Context, command *cli.Command) (*app, error) {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("cli")

	syncConfig, err := config.Load()
	if err != nil {
		return nil, err
	}

	a := &app{
		logger:      logger,
		sync:        syncConfig,
		persistence: cmd.NewPersistence(ctx, logger, command.String("store-url"), syncConfig.WatchDebounce),
	}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithJoinCodeAttempts(syncConfig.JoinCodeAttempts),
	}

	if provider := command.String("event-bus"); provider != "" {
		a.eventBus = cmd.NewEventBus(provider, logger, "facilitator-cli")
		opts = append(opts, services.WithEventPublisher(a.eventBus))
	}

	a.history = services.NewHistory(a.persistence, opts...)
	a.sessions = services.NewSession(a.persistence, a.history, opts...)
	a.workshops = services.NewWorkshop(a.persistence, opts...)
	a.publishing = services.NewPublishing(a.persistence, opts...)
	a.responses = services.NewResponses(a.persistence, opts...)

	return a, nil
}

func (a *app) Close(ctx context.Context) {
	if a.eventBus != nil {
		if err := a.eventBus.Close(); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}

	if err := a.persistence.Close(ctx); err != nil {
		a.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}

// withApp wraps an action so it receives a wired app that is closed after.
func withApp(action func(ctx context.Context, command *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		a, err := newApp(ctx, command)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		return action(ctx, command, a)
	}
}
