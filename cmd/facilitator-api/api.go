// Package main provides the facilitator API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/facilitator/pkg/config"
	"github.com/dukex/facilitator/pkg/eventbus"
	"github.com/dukex/facilitator/pkg/notifier"
	"github.com/dukex/facilitator/pkg/persistence/keyvalue"
	"github.com/dukex/facilitator/pkg/services"
	"github.com/dukex/facilitator/pkg/storage"
	"github.com/dukex/facilitator/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence *keyvalue.Persistence
	eventBus    eventbus.EventBus
	validate    *validator.Validate

	workshops  *services.Workshop
	publishing *services.Publishing
	sessions   *services.Session
	history    *services.History
	responses  *services.Responses
	notifier   *notifier.Notifier
}

// NewAPI builds the services over persistence. A nil eventBus leaves
// change propagation to the store watch and polling.
func NewAPI(
	log *slog.Logger,
	persistence *keyvalue.Persistence,
	eventBus eventbus.EventBus,
	sync *config.SyncConfig,
) (*API, error) {
	opts := []services.Option{
		services.WithLogger(log),
		services.WithJoinCodeAttempts(sync.JoinCodeAttempts),
	}

	if eventBus != nil {
		opts = append(opts, services.WithEventPublisher(eventBus))
	}

	history := services.NewHistory(persistence, opts...)
	sessions := services.NewSession(persistence, history, opts...)

	a := &API{
		logger:      log,
		persistence: persistence,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		workshops:   services.NewWorkshop(persistence, opts...),
		publishing:  services.NewPublishing(persistence, opts...),
		sessions:    sessions,
		history:     history,
		responses:   services.NewResponses(persistence, opts...),
		notifier: notifier.New(sessions,
			notifier.WithInterval(sync.PollInterval),
			notifier.WithLogger(log.With("module", "notifier"))),
	}

	if eventBus != nil {
		if err := a.notifier.Attach(eventBus); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(web.Services{
		Workshops:  a.workshops,
		Publishing: a.publishing,
		Sessions:   a.sessions,
		History:    a.history,
		Responses:  a.responses,
	}, a.notifier, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Facilitator API")
	})

	handlers.Register(app)

	return app
}

// StartSync connects the notifier to the event bus and, when the store
// supports it, to store change notifications.
func (a *API) StartSync(ctx context.Context) error {
	if a.eventBus != nil {
		if err := a.eventBus.Subscribe(ctx); err != nil {
			return err
		}
	}

	if watcher, ok := a.persistence.Store().(storage.Watcher); ok {
		if err := a.notifier.Watch(ctx, watcher); err != nil {
			return err
		}

		a.logger.InfoContext(ctx, "Watching store for changes")
	}

	return nil
}

// Start serves the API until ctx is done.
func (a *API) Start(ctx context.Context, port int) error {
	if err := a.StartSync(ctx); err != nil {
		return err
	}

	return a.App().Listen(":"+strconv.Itoa(port), fiber.ListenConfig{
		GracefulContext: ctx,
	})
}

func (a *API) Close() {
	a.notifier.Close()
}
