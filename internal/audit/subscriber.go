package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coc-admin/platform/internal/shared/events"
	"github.com/coc-admin/platform/internal/shared/metrics"
	"github.com/coc-admin/platform/internal/shared/types"
)

// Subscriber listens to domain events and creates audit entries
type Subscriber struct {
	repo   AuditRepository
	bus    events.EventBus
	logger *zap.Logger
}

// NewSubscriber creates a new audit subscriber
func NewSubscriber(repo AuditRepository, bus events.EventBus, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{repo: repo, bus: bus, logger: logger.Named("audit")}
}

// Start subscribes to case and agent events
func (s *Subscriber) Start(ctx context.Context) error {
	patterns := []struct {
		pattern      string
		consumerName string
	}{
		{"case.*", "audit-case-subscriber"},
		{"agent.*", "audit-agent-subscriber"},
	}

	for _, p := range patterns {
		if err := s.bus.Subscribe(ctx, p.pattern, p.consumerName, s.handleEvent); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", p.pattern, err)
		}
	}
	return nil
}

func (s *Subscriber) handleEvent(ctx context.Context, event events.Event) error {
	entry := eventToAuditEntry(event)
	if entry == nil {
		return nil
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	metrics.RecordAuditEntry()

	s.logger.Debug("audit entry appended",
		zap.String("action", entry.Action),
		zap.Int64("sequence", entry.Sequence))
	return nil
}

// eventToAuditEntry converts a domain event to an audit entry. Events
// without a resource prefix are not audited.
func eventToAuditEntry(event events.Event) *AuditEntry {
	parts := strings.SplitN(event.Type, ".", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil
	}
	resourceType := parts[0]

	data, _ := event.Data.(map[string]any)

	var resourceID *types.ID
	if event.StreamID != "" {
		id := types.ID(event.StreamID)
		resourceID = &id
	} else {
		for _, field := range []string{resourceType + "_id", "id"} {
			switch v := data[field].(type) {
			case string:
				id := types.ID(v)
				resourceID = &id
			case types.ID:
				id := v
				resourceID = &id
			}
			if resourceID != nil {
				break
			}
		}
	}

	actorType := ActorTypeSystem
	if !event.ActorID.IsZero() {
		actorType = actorTypeForRole(event.ActorRole)
	}

	// The store chains and rehashes the entry on append
	entry := NewAuditEntry(actorType, event.ActorID, event.Type, resourceType, resourceID, data, "")
	if !event.Timestamp.IsZero() {
		entry.Timestamp = event.Timestamp.UTC().Truncate(time.Microsecond)
	}
	entry.CorrelationID = event.CorrelationID
	entry.Hash = entry.calculateHash()
	return entry
}
