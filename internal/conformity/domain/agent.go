package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/coc-admin/platform/internal/shared/types"
)

// Agent is a control agent attached to an office
type Agent struct {
	ID        types.ID `json:"id"`
	Name      string   `json:"name"`
	Office    Office   `json:"office"`
	Available bool     `json:"available"`
	OnLeave   bool     `json:"on_leave"`
	// Load counts the agent's active (non-closed) cases
	Load int `json:"load"`
}

// NewAgent creates an available agent with no load
func NewAgent(name string, office Office) (*Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if !office.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOffice, office)
	}
	return &Agent{
		ID:        types.NewID(),
		Name:      name,
		Office:    office,
		Available: true,
	}, nil
}

// Eligible reports whether the agent can take a new case
func (a Agent) Eligible() bool {
	return a.Available && !a.OnLeave
}

// AgentRepository supplies office rosters and persists agent state
type AgentRepository interface {
	// SaveAgent creates or updates an agent. An existing agent keeps its
	// load; only AdjustLoad changes it.
	SaveAgent(ctx context.Context, a *Agent) error
	FindAgent(ctx context.Context, id types.ID) (*Agent, error)
	ListAgents(ctx context.Context) ([]Agent, error)
	// Roster returns every agent of the office, eligible or not
	Roster(ctx context.Context, office Office) ([]Agent, error)
	// EligibleAgents returns the office agents that are available and not on leave
	EligibleAgents(ctx context.Context, office Office) ([]Agent, error)
	// AdjustLoad adds delta to the agent's load, never going below zero
	AdjustLoad(ctx context.Context, id types.ID, delta int) (*Agent, error)
}

// SelectAgent picks the least loaded eligible agent of the roster and
// increments its load. Ties go to the lowest agent ID. When nobody is
// eligible it returns ErrNoAgentAvailable and leaves the roster untouched.
func SelectAgent(office Office, roster []Agent) (*Agent, error) {
	var best *Agent
	for i := range roster {
		a := &roster[i]
		if !a.Eligible() {
			continue
		}
		if best == nil || a.Load < best.Load || (a.Load == best.Load && a.ID.Less(best.ID)) {
			best = a
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoAgentAvailable, office)
	}
	best.Load++
	return best, nil
}

// SortByLoad orders agents by load, then ID. Used for roster listings.
func SortByLoad(agents []Agent) {
	sort.SliceStable(agents, func(i, j int) bool {
		if agents[i].Load != agents[j].Load {
			return agents[i].Load < agents[j].Load
		}
		return agents[i].ID.Less(agents[j].ID)
	})
}

// AgentSelector serializes load bookkeeping per office. Reading the roster,
// choosing the agent and persisting its new load happen under the office lock,
// so two concurrent selections never both pick from the same stale snapshot.
type AgentSelector struct {
	repo  AgentRepository
	locks map[Office]*sync.Mutex
}

// NewAgentSelector creates a selector backed by the repository
func NewAgentSelector(repo AgentRepository) *AgentSelector {
	locks := make(map[Office]*sync.Mutex, len(Offices))
	for _, o := range Offices {
		locks[o] = &sync.Mutex{}
	}
	return &AgentSelector{repo: repo, locks: locks}
}

// Select assigns a new case in office to its least loaded eligible agent
func (s *AgentSelector) Select(ctx context.Context, office Office) (*Agent, error) {
	unlock, err := s.lock(office)
	if err != nil {
		return nil, err
	}
	defer unlock()

	roster, err := s.repo.EligibleAgents(ctx, office)
	if err != nil {
		return nil, err
	}
	chosen, err := SelectAgent(office, roster)
	if err != nil {
		return nil, err
	}
	return s.repo.AdjustLoad(ctx, chosen.ID, 1)
}

// Release decrements an agent's load when one of its cases closes
func (s *AgentSelector) Release(ctx context.Context, agentID types.ID) error {
	agent, err := s.repo.FindAgent(ctx, agentID)
	if err != nil {
		return err
	}
	unlock, err := s.lock(agent.Office)
	if err != nil {
		return err
	}
	defer unlock()

	_, err = s.repo.AdjustLoad(ctx, agentID, -1)
	return err
}

// Transfer moves one unit of load from one agent to another after a
// reassignment. Both office locks are taken in rotation order and the target
// is re-read under them; it fails with ErrAgentUnavailable when the target
// went on leave or unavailable since the caller looked it up. from may be
// nil when the case had no agent.
func (s *AgentSelector) Transfer(ctx context.Context, from, to *Agent) error {
	unlock, err := s.lock(transferOffices(from, to)...)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.repo.FindAgent(ctx, to.ID)
	if err != nil {
		return err
	}
	if !current.Eligible() {
		return fmt.Errorf("%w: %s", ErrAgentUnavailable, current.Name)
	}
	return s.move(ctx, from, to)
}

// Revert undoes a Transfer from one agent to another. No eligibility check
// applies: the load goes back to from whatever its current state.
func (s *AgentSelector) Revert(ctx context.Context, from, to *Agent) error {
	unlock, err := s.lock(transferOffices(from, to)...)
	if err != nil {
		return err
	}
	defer unlock()

	if from == nil {
		_, err := s.repo.AdjustLoad(ctx, to.ID, -1)
		return err
	}
	return s.move(ctx, to, from)
}

// move increments to before decrementing from, and takes the increment back
// when the decrement fails. Callers hold both office locks.
func (s *AgentSelector) move(ctx context.Context, from, to *Agent) error {
	if _, err := s.repo.AdjustLoad(ctx, to.ID, 1); err != nil {
		return err
	}
	if from == nil {
		return nil
	}
	if _, err := s.repo.AdjustLoad(ctx, from.ID, -1); err != nil {
		if _, cerr := s.repo.AdjustLoad(ctx, to.ID, -1); cerr != nil {
			return errors.Join(err, fmt.Errorf("restore load of %s: %w", to.ID, cerr))
		}
		return err
	}
	return nil
}

func transferOffices(from, to *Agent) []Office {
	offices := []Office{to.Office}
	if from != nil {
		offices = append(offices, from.Office)
	}
	return offices
}

func (s *AgentSelector) lock(offices ...Office) (func(), error) {
	var held []*sync.Mutex
	for _, o := range Offices {
		for _, want := range offices {
			if want == o {
				m := s.locks[o]
				m.Lock()
				held = append(held, m)
				break
			}
		}
	}
	if len(held) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnknownOffice, offices)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}, nil
}
