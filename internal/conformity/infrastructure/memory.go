package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/coc-admin/platform/internal/conformity/domain"
	"github.com/coc-admin/platform/internal/shared/errors"
	"github.com/coc-admin/platform/internal/shared/types"
)

// MemoryCaseRepository keeps cases in process memory. It is selected with
// STORAGE=memory and used by tests; it is never a fallback for PostgreSQL.
type MemoryCaseRepository struct {
	mu       sync.RWMutex
	cases    map[types.ID]*domain.Case
	byNumber map[string]types.ID
}

// NewMemoryCaseRepository creates an empty case repository
func NewMemoryCaseRepository() *MemoryCaseRepository {
	return &MemoryCaseRepository{
		cases:    make(map[types.ID]*domain.Case),
		byNumber: make(map[string]types.ID),
	}
}

func (r *MemoryCaseRepository) Save(ctx context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byNumber[c.CaseNumber]; ok {
		return errors.Conflict("case with this number already exists")
	}
	if _, ok := r.cases[c.ID]; ok {
		return errors.Conflict("case already exists")
	}
	r.cases[c.ID] = c.Clone()
	r.byNumber[c.CaseNumber] = c.ID
	return nil
}

func (r *MemoryCaseRepository) Update(ctx context.Context, c *domain.Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cases[c.ID]; !ok {
		return errors.NotFound("case", c.ID.String())
	}
	r.cases[c.ID] = c.Clone()
	return nil
}

func (r *MemoryCaseRepository) FindByID(ctx context.Context, id types.ID) (*domain.Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cases[id]
	if !ok {
		return nil, errors.NotFound("case", id.String())
	}
	return c.Clone(), nil
}

func (r *MemoryCaseRepository) FindByCaseNumber(ctx context.Context, caseNumber string) (*domain.Case, error) {
	r.mu.RLock()
	id, ok := r.byNumber[caseNumber]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("case", caseNumber)
	}
	return r.FindByID(ctx, id)
}

// List returns matching cases, newest first
func (r *MemoryCaseRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Case, int, error) {
	r.mu.RLock()
	matched := make([]domain.Case, 0, len(r.cases))
	for _, c := range r.cases {
		if filter.Matches(c) {
			matched = append(matched, *c.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].CaseNumber > matched[j].CaseNumber
	})

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []domain.Case{}, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (r *MemoryCaseRepository) LatestCaseNumber(ctx context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := ""
	for number := range r.byNumber {
		if number > latest {
			latest = number
		}
	}
	return latest, nil
}

// MemoryAgentRepository keeps agents in process memory
type MemoryAgentRepository struct {
	mu     sync.RWMutex
	agents map[types.ID]*domain.Agent
}

// NewMemoryAgentRepository creates a repository holding the given agents
func NewMemoryAgentRepository(agents ...domain.Agent) *MemoryAgentRepository {
	r := &MemoryAgentRepository{agents: make(map[types.ID]*domain.Agent, len(agents))}
	for _, a := range agents {
		a := a
		r.agents[a.ID] = &a
	}
	return r
}

func (r *MemoryAgentRepository) SaveAgent(ctx context.Context, a *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.agents[a.ID]; ok {
		a.Load = existing.Load
	}
	cp := *a
	r.agents[a.ID] = &cp
	return nil
}

func (r *MemoryAgentRepository) FindAgent(ctx context.Context, id types.ID) (*domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[id]
	if !ok {
		return nil, errors.NotFound("agent", id.String())
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryAgentRepository) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	return r.collect(func(a *domain.Agent) bool { return true }), nil
}

func (r *MemoryAgentRepository) Roster(ctx context.Context, office domain.Office) ([]domain.Agent, error) {
	return r.collect(func(a *domain.Agent) bool { return a.Office == office }), nil
}

func (r *MemoryAgentRepository) EligibleAgents(ctx context.Context, office domain.Office) ([]domain.Agent, error) {
	return r.collect(func(a *domain.Agent) bool { return a.Office == office && a.Eligible() }), nil
}

func (r *MemoryAgentRepository) AdjustLoad(ctx context.Context, id types.ID, delta int) (*domain.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok {
		return nil, errors.NotFound("agent", id.String())
	}
	a.Load += delta
	if a.Load < 0 {
		a.Load = 0
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryAgentRepository) CountAgents(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents), nil
}

// collect returns matching agents ordered by office then name
func (r *MemoryAgentRepository) collect(keep func(a *domain.Agent) bool) []domain.Agent {
	r.mu.RLock()
	agents := []domain.Agent{}
	for _, a := range r.agents {
		if keep(a) {
			agents = append(agents, *a)
		}
	}
	r.mu.RUnlock()

	sort.Slice(agents, func(i, j int) bool {
		if agents[i].Office != agents[j].Office {
			return agents[i].Office < agents[j].Office
		}
		if agents[i].Name != agents[j].Name {
			return agents[i].Name < agents[j].Name
		}
		return agents[i].ID < agents[j].ID
	})
	return agents
}
