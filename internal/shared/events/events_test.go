package events

import (
	"context"
	"errors"
	"testing"

	"github.com/coc-admin/platform/internal/shared/config"
)

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		eventType string
		pattern   string
		want      bool
	}{
		{"case.submitted", "case.*", true},
		{"case.closed", "case.closed", true},
		{"case.closed", "case.submitted", false},
		{"agent.updated", "case.*", false},
		{"case", "case.*", false},
		{"case.item.reviewed", "case.*", true},
		{"case.item.reviewed", "case.item.*", true},
		{"case.item", "case.item.*", false},
		{"case.item.reviewed", "case.item", false},
		{"anything", "*", true},
	}

	for _, tt := range tests {
		if got := MatchesPattern(tt.eventType, tt.pattern); got != tt.want {
			t.Errorf("MatchesPattern(%q, %q): expected %v, got %v", tt.eventType, tt.pattern, tt.want, got)
		}
	}
}

func TestPatternToRegex(t *testing.T) {
	if got := patternToRegex("case.*"); got != `^case\..*` {
		t.Errorf("Unexpected regex %s", got)
	}
}

func TestStreamName(t *testing.T) {
	b := &Bus{prefix: "coc"}

	e := NewEvent("case.submitted", "conformity", nil).WithStream("abc")
	if got := b.StreamName(e); got != "coc_case-abc" {
		t.Errorf("Expected coc_case-abc, got %s", got)
	}

	e = NewEvent("agent.updated", "conformity", nil)
	if got := b.StreamName(e); got != "coc_agent-agent_updated" {
		t.Errorf("Expected coc_agent-agent_updated, got %s", got)
	}
}

func TestLocalBus(t *testing.T) {
	ctx := context.Background()
	bus := NewLocalBus(nil)

	var cases, all []string
	_ = bus.Subscribe(ctx, "case.*", "cases", func(ctx context.Context, e Event) error {
		cases = append(cases, e.Type)
		return nil
	})
	_ = bus.Subscribe(ctx, "*", "all", func(ctx context.Context, e Event) error {
		all = append(all, e.Type)
		return errors.New("ignored")
	})

	for _, typ := range []string{"case.submitted", "agent.updated", "case.closed"} {
		if err := bus.Publish(ctx, NewEvent(typ, "test", nil)); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	if len(cases) != 2 {
		t.Errorf("Expected 2 case events, got %v", cases)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 events, got %v", all)
	}

	bus.Close()
	_ = bus.Publish(ctx, NewEvent("case.submitted", "test", nil))
	if len(cases) != 2 {
		t.Error("Expected no delivery after close")
	}
}

func TestNewEventBusDisabled(t *testing.T) {
	bus, kind, err := NewEventBus(context.Background(), config.KurrentDBConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if kind != "local" {
		t.Errorf("Expected local bus, got %s", kind)
	}
	if bus.Health() != nil {
		t.Error("Expected healthy local bus")
	}
}
