package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/coc-admin/platform/internal/conformity/domain"
	apperrors "github.com/coc-admin/platform/internal/shared/errors"
	"github.com/coc-admin/platform/internal/shared/types"
)

// DocumentsError reports a submission rejected by document validation
type DocumentsError struct {
	Errors []string
}

func (e *DocumentsError) Error() string {
	return "missing required documents: " + strings.Join(e.Errors, "; ")
}

// SubmitRequest is a new conformity request
type SubmitRequest struct {
	ApplicantID   types.ID
	ApplicantRole domain.ApplicantRole
	Items         []domain.Item
	Documents     domain.Documents
}

// EngineStats are process counters since startup
type EngineStats struct {
	Submitted       int64  `json:"submitted"`
	RejectedNoAgent int64  `json:"rejected_no_agent"`
	RejectedDocs    int64  `json:"rejected_documents"`
	Reassignments   int64  `json:"reassignments"`
	Closed          int64  `json:"closed"`
	RotationCounter uint64 `json:"rotation_counter"`
}

// Engine runs the case workflow: office rotation, agent selection,
// review, finalization and reassignment, with agent load bookkeeping.
type Engine struct {
	rotator  *domain.OfficeRotator
	selector *domain.AgentSelector
	numberer domain.CaseNumberer
	cases    domain.Repository
	agents   domain.AgentRepository
	logger   *zap.Logger
	now      func() time.Time

	// caseLocks serializes mutations of one case within the process. Entries
	// are dropped when the case closes.
	caseLocks sync.Map

	mu    sync.RWMutex
	stats EngineStats
}

// EngineConfig holds engine dependencies
type EngineConfig struct {
	Rotator  *domain.OfficeRotator
	Numberer domain.CaseNumberer
	Cases    domain.Repository
	Agents   domain.AgentRepository
	Logger   *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// NewEngine creates a new engine
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Rotator == nil {
		return nil, domain.ErrNoOffices
	}
	if cfg.Cases == nil || cfg.Agents == nil {
		return nil, errors.New("engine requires case and agent repositories")
	}
	if cfg.Numberer == nil {
		cfg.Numberer = domain.TimeNumberer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		rotator:  cfg.Rotator,
		selector: domain.NewAgentSelector(cfg.Agents),
		numberer: cfg.Numberer,
		cases:    cfg.Cases,
		agents:   cfg.Agents,
		logger:   cfg.Logger.Named("engine"),
		now:      cfg.Now,
	}, nil
}

// Submit validates and assigns a new case. Nothing is persisted and no load
// changes when documents are missing or the office has no eligible agent.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*domain.Case, error) {
	result := domain.ValidateDocuments(req.Items, req.Documents)
	if !result.Valid {
		e.count(func(s *EngineStats) { s.RejectedDocs++ })
		return nil, &DocumentsError{Errors: result.Errors}
	}

	// Items are checked before any office is consumed
	if err := domain.ValidateSubmission(req.ApplicantRole, req.Items); err != nil {
		return nil, err
	}

	office := e.rotator.Next()
	agent, err := e.selector.Select(ctx, office)
	if err != nil {
		if errors.Is(err, domain.ErrNoAgentAvailable) {
			e.count(func(s *EngineStats) { s.RejectedNoAgent++ })
			e.logger.Warn("no agent available",
				zap.String("office", string(office)),
				zap.Uint64("rotation", e.rotator.Counter()))
		}
		return nil, err
	}

	now := e.now()
	number, err := e.numberer.Next(now)
	if err != nil {
		e.release(ctx, agent.ID)
		return nil, err
	}
	c, err := domain.NewCase(number, req.ApplicantID, req.ApplicantRole, req.Items, req.Documents, now)
	if err != nil {
		e.release(ctx, agent.ID)
		return nil, err
	}
	if err := c.Assign(office, agent, now); err != nil {
		e.release(ctx, agent.ID)
		return nil, err
	}
	if err := e.cases.Save(ctx, c); err != nil {
		e.release(ctx, agent.ID)
		return nil, fmt.Errorf("failed to save case: %w", err)
	}

	e.count(func(s *EngineStats) { s.Submitted++ })
	e.logger.Info("case assigned",
		zap.String("case_number", c.CaseNumber),
		zap.String("office", string(office)),
		zap.String("agent_id", agent.ID.String()),
		zap.Int("agent_load", agent.Load),
		zap.Int("items", len(c.Items)))

	return c, nil
}

// Get returns a case by ID
func (e *Engine) Get(ctx context.Context, id types.ID) (*domain.Case, error) {
	return e.cases.FindByID(ctx, id)
}

// StartReview moves a submitted case to IN_PROGRESS
func (e *Engine) StartReview(ctx context.Context, caseID, actorID types.ID) (*domain.Case, error) {
	return e.mutate(ctx, caseID, func(c *domain.Case) error {
		return c.StartReview(actorID, e.now())
	})
}

// RecordOpinion records a reviewer's opinion on one item
func (e *Engine) RecordOpinion(ctx context.Context, caseID types.ID, index int, opinion domain.Opinion, comment string, reviewerID types.ID) (*domain.Case, error) {
	return e.mutate(ctx, caseID, func(c *domain.Case) error {
		return c.RecordOpinion(index, opinion, comment, reviewerID, e.now())
	})
}

// Finalize closes a fully reviewed case and releases its agent's load
func (e *Engine) Finalize(ctx context.Context, caseID, actorID types.ID) (*domain.Case, error) {
	unlock := e.lockCase(caseID)
	defer unlock()

	c, err := e.cases.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	decision, err := c.Finalize(actorID, e.now())
	if err != nil {
		e.forgetClosed(c)
		return nil, err
	}
	if err := e.cases.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to close case: %w", err)
	}
	e.forgetClosed(c)
	e.release(ctx, c.AgentID)

	e.count(func(s *EngineStats) { s.Closed++ })
	e.logger.Info("case closed",
		zap.String("case_number", c.CaseNumber),
		zap.String("decision", string(decision)),
		zap.Int("items", len(c.Items)))

	return c, nil
}

// Reassign moves a case to another agent. The target must be eligible; the
// previous agent loses one unit of load and the target gains one.
func (e *Engine) Reassign(ctx context.Context, caseID, targetID, actorID types.ID) (*domain.Case, domain.ReassignmentRecord, error) {
	unlock := e.lockCase(caseID)
	defer unlock()

	c, err := e.cases.FindByID(ctx, caseID)
	if err != nil {
		return nil, domain.ReassignmentRecord{}, err
	}
	defer e.forgetClosed(c)
	target, err := e.agents.FindAgent(ctx, targetID)
	if err != nil {
		return nil, domain.ReassignmentRecord{}, err
	}

	var previous *domain.Agent
	if !c.AgentID.IsZero() {
		previous, err = e.agents.FindAgent(ctx, c.AgentID)
		if err != nil && !isNotFound(err) {
			return nil, domain.ReassignmentRecord{}, err
		}
	}

	record, err := c.Reassign(*target, actorID, e.now())
	if err != nil {
		return nil, domain.ReassignmentRecord{}, err
	}

	if err := e.selector.Transfer(ctx, previous, target); err != nil {
		if errors.Is(err, domain.ErrAgentUnavailable) {
			return nil, domain.ReassignmentRecord{}, err
		}
		return nil, domain.ReassignmentRecord{}, fmt.Errorf("failed to transfer load: %w", err)
	}
	if err := e.cases.Update(ctx, c); err != nil {
		if rerr := e.selector.Revert(ctx, previous, target); rerr != nil {
			e.logger.Error("failed to restore agent load", zap.Error(rerr))
		}
		return nil, domain.ReassignmentRecord{}, fmt.Errorf("failed to reassign case: %w", err)
	}

	e.count(func(s *EngineStats) { s.Reassignments++ })
	e.logger.Info("case reassigned",
		zap.String("case_number", c.CaseNumber),
		zap.String("from_agent_id", record.FromAgentID.String()),
		zap.String("agent_id", record.AgentID.String()),
		zap.String("office", string(c.Office)))

	return c, record, nil
}

// Stats returns engine counters
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.stats
	s.RotationCounter = e.rotator.Counter()
	return s
}

// Offices returns the rotation list
func (e *Engine) Offices() []domain.Office {
	return e.rotator.Offices()
}

func (e *Engine) mutate(ctx context.Context, caseID types.ID, fn func(c *domain.Case) error) (*domain.Case, error) {
	unlock := e.lockCase(caseID)
	defer unlock()

	c, err := e.cases.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	defer e.forgetClosed(c)
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := e.cases.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update case: %w", err)
	}
	return c, nil
}

func (e *Engine) lockCase(id types.ID) func() {
	v, _ := e.caseLocks.LoadOrStore(id, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// forgetClosed drops the lock of a case whose stored status is CLOSED.
// Closed cases reject every mutation, so a caller racing the deletion only
// ever reads.
func (e *Engine) forgetClosed(c *domain.Case) {
	if c.Status == domain.CaseStatusClosed {
		e.caseLocks.Delete(c.ID)
	}
}

func (e *Engine) release(ctx context.Context, agentID types.ID) {
	if agentID.IsZero() {
		return
	}
	if err := e.selector.Release(ctx, agentID); err != nil {
		e.logger.Error("failed to release agent load",
			zap.String("agent_id", agentID.String()),
			zap.Error(err))
	}
}

func (e *Engine) count(fn func(s *EngineStats)) {
	e.mu.Lock()
	fn(&e.stats)
	e.mu.Unlock()
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
