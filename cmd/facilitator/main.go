package main

import (
	"context"
	"os"

	"github.com/dukex/facilitator/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:                  "facilitator",
		Usage:                 "Operate workshops and live sessions from the terminal",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "store-url",
				Usage:   "Store URL (memory://, file://, redis://, postgres://, sqlite://)",
				Value:   "file://./data",
				Sources: cli.EnvVars("STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type to publish changes on (gochannel, kafka); empty disables events",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			SeedCommand(),
			WorkshopsCommand(),
			SessionsCommand(),
			JoinCommand(),
			WatchCommand(),
			TickCommand(),
			HistoryCommand(),
		},
	}
}

func main() {
	if err := newRootCommand().Run(context.Background(), os.Args); err != nil {
		log.WithModule("cli").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
