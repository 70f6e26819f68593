package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type subscription struct {
	pattern  string
	consumer string
	handler  Handler
}

// LocalBus delivers events to in-process subscribers synchronously. It is
// used when KurrentDB is disabled; events are not persisted.
type LocalBus struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *zap.Logger
}

// NewLocalBus creates an in-process bus
func NewLocalBus(logger *zap.Logger) *LocalBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalBus{logger: logger.Named("eventbus")}
}

// Publish hands the event to every matching subscriber. Handler errors are
// logged and do not fail the publisher.
func (b *LocalBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if !MatchesPattern(event.Type, s.pattern) {
			continue
		}
		if err := s.handler(ctx, event); err != nil {
			b.logger.Error("event handler failed",
				zap.String("consumer", s.consumer),
				zap.String("type", event.Type),
				zap.Error(err))
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{pattern: pattern, consumer: consumerName, handler: handler})
	return nil
}

func (b *LocalBus) Close() {
	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
}

func (b *LocalBus) Health() error { return nil }
