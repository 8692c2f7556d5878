package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/facilitator/pkg/cmd"
	"github.com/dukex/facilitator/pkg/config"
	"github.com/dukex/facilitator/pkg/log"
	"github.com/dukex/facilitator/pkg/otelhelper"
	"github.com/dukex/facilitator/pkg/seed"
	"github.com/dukex/facilitator/pkg/ticking"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "facilitator-api",
		Usage:                 "Serve workshops and live sessions over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "store-url",
				Usage:   "Store URL (memory://, file://, redis://, postgres://, sqlite://)",
				Value:   "file://./data",
				Sources: cli.EnvVars("STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "tick",
				Usage:   "Run the ticking owner in this process",
				Value:   true,
				Sources: cli.EnvVars("TICK"),
			},
			&cli.StringFlag{
				Name:    "lease",
				Usage:   "Ticking ownership lease (local, redis)",
				Value:   "local",
				Sources: cli.EnvVars("LEASE_TYPE"),
			},
			&cli.StringFlag{
				Name:    "lease-redis-url",
				Usage:   "Redis URL for the redis lease, defaults to the store URL",
				Sources: cli.EnvVars("LEASE_REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "seed-file",
				Usage:   "YAML or JSON workshops loaded into an empty library at start",
				Sources: cli.EnvVars("SEED_FILE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			syncConfig, err := config.Load()
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Initializing facilitator API")

			if command.Bool("tracing") {
				_, shutdown, err := otelhelper.NewTracer(ctx, "facilitator-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			storeURL := command.String("store-url")

			persistence := cmd.NewPersistence(ctx, logger, storeURL, syncConfig.WatchDebounce)
			defer func() {
				err := persistence.Close(context.Background())
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger, "facilitator-api")
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api, err := NewAPI(logger, persistence, eventBus, syncConfig)
			if err != nil {
				return err
			}
			defer api.Close()

			if seedFile := command.String("seed-file"); seedFile != "" {
				if _, err := seed.NewSeeder(api.workshops, logger).ApplyFile(ctx, seedFile, false); err != nil {
					return err
				}
			}

			if command.Bool("tick") {
				leaseURL := command.String("lease-redis-url")
				if leaseURL == "" {
					leaseURL = storeURL
				}

				lease, closeLease, err := cmd.NewLease(command.String("lease"), leaseURL, syncConfig.LeaseTTL)
				if err != nil {
					return err
				}
				defer closeLease()

				owner := ticking.NewOwner(api.sessions,
					ticking.WithInterval(syncConfig.TickInterval),
					ticking.WithLease(lease),
					ticking.WithLogger(log.WithModule("ticking")))

				if err := owner.Start(ctx); err != nil {
					return err
				}

				defer func() {
					if err := owner.Stop(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to stop ticking owner", "error", err)
					}
				}()
			}

			if err := api.Start(ctx, command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
