// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/facilitator/pkg/channels/gochannel"
	"github.com/dukex/facilitator/pkg/channels/kafka"
	"github.com/dukex/facilitator/pkg/eventbus"
)

// NewEventBus creates the event bus for provider ("gochannel" or "kafka").
// Kafka consumers share consumerGroup.
func NewEventBus(provider string, logger *slog.Logger, consumerGroup string) *eventbus.WatermillEventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create in-process pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger)
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, consumerGroup)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
