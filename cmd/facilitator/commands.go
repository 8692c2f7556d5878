package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/dukex/facilitator/pkg/cmd"
	"github.com/dukex/facilitator/pkg/models"
	"github.com/dukex/facilitator/pkg/notifier"
	"github.com/dukex/facilitator/pkg/seed"
	"github.com/dukex/facilitator/pkg/services"
	"github.com/dukex/facilitator/pkg/storage"
	"github.com/dukex/facilitator/pkg/ticking"
	cli "github.com/urfave/cli/v3"
)

var errMissingArgument = errors.New("missing argument")

func out(command *cli.Command) io.Writer {
	if w := command.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

func requireArgs(command *cli.Command, names ...string) ([]string, error) {
	if command.Args().Len() < len(names) {
		return nil, fmt.Errorf("%w: usage %s %v", errMissingArgument, command.Name, names)
	}

	return command.Args().Slice()[:len(names)], nil
}

func SeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load workshops from a YAML or JSON file into an empty library",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Seed file path",
				Required: true,
				Sources:  cli.EnvVars("SEED_FILE"),
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Seed even when the library already has workshops",
			},
		},
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) error {
			result, err := seed.NewSeeder(a.workshops, a.logger).ApplyFile(ctx, command.String("file"), command.Bool("force"))
			if err != nil {
				return err
			}

			if result.Skipped {
				fmt.Fprintln(out(command), "Library is not empty, nothing seeded (use --force)")

				return nil
			}

			fmt.Fprintf(out(command), "Seeded %d of %d workshops\n", result.Saved, result.Loaded)

			return nil
		}),
	}
}

func WorkshopsCommand() *cli.Command {
	return &cli.Command{
		Name:    "workshops",
		Aliases: []string{"w"},
		Usage:   "Browse and publish workshops",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List library workshops",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "all, draft, upcoming or completed", Value: services.StatusAll},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Title search"},
				},
				Action: withApp(func(ctx context.Context, command *cli.Command, a *app) error {
					workshops, err := a.workshops.List(ctx, services.ListWorkshopsRequest{
						Status: command.String("status"),
						Query:  command.String("query"),
					})
					if err != nil {
						return err
					}

					return printWorkshops(out(command), workshops)
				}),
			},
			{
				Name:  "delete",
				Usage: "Delete a workshop and its draft",
				Action: withApp(func(ctx context.Context, command *cli.Command, a *app) error {
					args, err := requireArgs(command, "WORKSHOP_ID")
					if err != nil {
						return err
					}

					return a.workshops.Delete(ctx, args[0])
				}),
			},
		},
	}
}

func SessionsCommand() *cli.Command {
	control := func(name, usage string, run func(ctx context.Context, a *app, args []string) (*models.Session, error), argNames ...string) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Action: withApp(func(ctx context.Context, command *cli.Command, a *app) error {
				args, err := requireArgs(command, argNames...)
				if err != nil {
					return err
				}

				session, err := run(ctx, a, args)
				if err != nil {
					return err
				}

				if session == nil {
					return services.ErrSessionNotFound
				}

				printSession(out(command), session)

				return nil
			}),
		}
	}

	addTime := control("add-time", "Shift a block's accumulated time", func(ctx context.Context, a *app, args []string) (*models.Session, error) {
		delta, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("invalid seconds %q: %w", args[2], err)
		}

		return a.sessions.AddTime(ctx, args[0], args[1], delta, nil)
	}, "SESSION_ID", "BLOCK_ID", "SECONDS")

	return &cli.Command{
		Name:    "sessions",
		Aliases: []string{"s"},
		Usage:   "Run live sessions",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List sessions, newest first",
				Action: withApp(func(ctx context.Context, command *cli.Command, a *app) error {
					sessions, err := a.sessions.List(ctx)
					if err != nil {
						return err
					}

					return printSessions(out(command), sessions)
				}),
			},
			control("start", "Start a session from a workshop", func(ctx context.Context, a *app, args []string) (*models.Session, error) {
				return a.sessions.CreateSessionForWorkshop(ctx, args[0])
			}, "WORKSHOP_ID"),
			control("block", "Make a block current and running", func(ctx context.Context, a *app, args []string) (*models.Session, error) {
				return a.sessions.StartBlock(ctx, args[0], args[1])
			}, "SESSION_ID", "BLOCK_ID"),
			control("pause", "Toggle the running state", func(ctx context.Context, a *app, args []string) (*models.Session, error) {
				return a.sessions.TogglePause(ctx, args[0])
			}, "SESSION_ID"),
			control("next", "Move to the next block", func(ctx context.Context, a *app, args []string) (*models.Session, error) {
				return a.sessions.NextBlock(ctx, args[0])
			}, "SESSION_ID"),
			control("previous", "Move to the previous block", func(ctx context.Context, a *app, args []string) (*models.Session, error) {
				return a.sessions.PreviousBlock(ctx, args[0])
			}, "SESSION_ID"),
			control("complete", "Complete a session", func(ctx context.Context, a *app, args []string) (*models.Session, error) {
				return a.sessions.Complete(ctx, args[0])
			}, "SESSION_ID"),
			addTime,
		},
	}
}

func JoinCommand() *cli.Command {
	return &cli.Command{
		Name:  "join",
		Usage: "Join a session with its code",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Display name"},
			&cli.StringFlag{Name: "avatar", Usage: "Avatar id"},
			&cli.StringFlag{Name: "participant-id", Usage: "Rejoin as an existing participant"},
		},
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) error {
			args, err := requireArgs(command, "CODE")
			if err != nil {
				return err
			}

			session, participant, err := a.sessions.Join(ctx, services.JoinRequest{
				Code:          args[0],
				Name:          command.String("name"),
				Avatar:        command.String("avatar"),
				ParticipantID: command.String("participant-id"),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out(command), "Joined %q as %s (participant %s)\n", session.Title, participant.Name, participant.ID)

			return nil
		}),
	}
}

// WatchCommand is a terminal projector: it prints a frame whenever the
// session changes, whichever process changed it.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow a session like a projector screen",
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) error {
			args, err := requireArgs(command, "SESSION_ID")
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			n := notifier.New(a.sessions,
				notifier.WithInterval(a.sync.PollInterval),
				notifier.WithLogger(a.logger))
			defer n.Close()

			if watcher, ok := a.persistence.Store().(storage.Watcher); ok {
				if err := n.Watch(ctx, watcher); err != nil {
					return err
				}
			}

			gone := make(chan struct{})

			var once sync.Once

			cancel, err := n.Subscribe(ctx, args[0], func(_ context.Context, snapshot *models.SessionSnapshot) {
				if snapshot == nil {
					once.Do(func() {
						fmt.Fprintln(out(command), "Session not found")
						close(gone)
					})

					return
				}

				printScreen(out(command), services.NewScreen(snapshot))
			})
			if err != nil {
				return err
			}
			defer cancel()

			select {
			case <-ctx.Done():
			case <-gone:
			}

			return nil
		}),
	}
}

func TickCommand() *cli.Command {
	return &cli.Command{
		Name:  "tick",
		Usage: "Run a standalone ticking owner",
		Flags: []cli.Flag{
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
		},
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			leaseURL := command.String("lease-redis-url")
			if leaseURL == "" {
				leaseURL = command.String("store-url")
			}

			lease, closeLease, err := cmd.NewLease(command.String("lease"), leaseURL, a.sync.LeaseTTL)
			if err != nil {
				return err
			}
			defer closeLease()

			owner := ticking.NewOwner(a.sessions,
				ticking.WithInterval(a.sync.TickInterval),
				ticking.WithLease(lease),
				ticking.WithLogger(a.logger.With("module", "ticking")))

			if err := owner.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			return owner.Stop(stopCtx)
		}),
	}
}

func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the session history, newest first",
		Action: withApp(func(ctx context.Context, command *cli.Command, a *app) error {
			records, err := a.history.List(ctx)
			if err != nil {
				return err
			}

			return printHistory(out(command), records, time.Now())
		}),
	}
}
