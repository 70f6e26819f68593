package events

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coc-admin/platform/internal/shared/config"
)

// EventBus defines the interface for event publishing and subscription
type EventBus interface {
	// Publish publishes an event to the bus
	Publish(ctx context.Context, event Event) error

	// Subscribe creates a subscription to events matching a pattern
	Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error

	// Close closes the event bus connection
	Close()

	// Health checks the event bus connection
	Health() error
}

// NewEventBus connects to KurrentDB when enabled and returns an in-process
// bus otherwise. A configured but unreachable KurrentDB is an error.
func NewEventBus(ctx context.Context, cfg config.KurrentDBConfig, logger *zap.Logger) (EventBus, string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		return NewLocalBus(logger), "local", nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	bus, err := NewBus(timeoutCtx, cfg, logger)
	if err != nil {
		return nil, "", err
	}
	if err := bus.Health(); err != nil {
		bus.Close()
		return nil, "", fmt.Errorf("KurrentDB health check failed: %w", err)
	}

	return bus, "kurrentdb", nil
}

var (
	_ EventBus = (*Bus)(nil)
	_ EventBus = (*LocalBus)(nil)
)
