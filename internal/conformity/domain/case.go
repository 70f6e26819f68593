package domain

import (
	"fmt"
	"time"

	"github.com/coc-admin/platform/internal/shared/types"
)

// CaseStatus defines the status of a case. Transitions only move forward.
type CaseStatus string

const (
	CaseStatusSubmitted  CaseStatus = "SUBMITTED"
	CaseStatusInProgress CaseStatus = "IN_PROGRESS"
	CaseStatusClosed     CaseStatus = "CLOSED"
)

// Valid reports whether s is a known status
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusSubmitted, CaseStatusInProgress, CaseStatusClosed:
		return true
	}
	return false
}

// Case is a conformity certification request, the aggregate root of the
// conformity context
type Case struct {
	ID            types.ID      `json:"id"`
	CaseNumber    string        `json:"case_number"`
	ApplicantID   types.ID      `json:"applicant_id"`
	ApplicantRole ApplicantRole `json:"applicant_role"`
	Status        CaseStatus    `json:"status"`

	// Assignment
	Office     Office     `json:"office,omitempty"`
	AgentID    types.ID   `json:"agent_id,omitempty"`
	AgentName  string     `json:"agent_name,omitempty"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`

	Items     []Item    `json:"items"`
	Documents Documents `json:"documents"`

	// Decision stays nil until finalization and is never changed afterwards
	Decision *Decision `json:"decision"`

	Reassignments []ReassignmentRecord `json:"reassignments,omitempty"`
	Events        []CaseEvent          `json:"events,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	domainEvents []Event
}

// NewCase creates a submitted case. Supporting documents are checked
// separately by ValidateDocuments.
func NewCase(
	caseNumber string,
	applicantID types.ID,
	role ApplicantRole,
	items []Item,
	documents Documents,
	now time.Time,
) (*Case, error) {
	if caseNumber == "" {
		return nil, fmt.Errorf("case number is required")
	}
	if err := ValidateSubmission(role, items); err != nil {
		return nil, err
	}
	if documents == nil {
		documents = Documents{}
	}

	c := &Case{
		ID:            types.NewID(),
		CaseNumber:    caseNumber,
		ApplicantID:   applicantID,
		ApplicantRole: role,
		Status:        CaseStatusSubmitted,
		Items:         append([]Item(nil), items...),
		Documents:     documents,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	c.addEvent(CaseEventTypeSubmitted, applicantID, "Case submitted", map[string]any{
		"items": len(items),
	}, now)

	return c, nil
}

// ValidateSubmission checks the applicant role and the item lines of a new case
func ValidateSubmission(role ApplicantRole, items []Item) error {
	if role != ApplicantImporter && role != ApplicantExporter {
		return fmt.Errorf("%w: applicant role must be importer or exporter, got %q", ErrInvalidSubmission, role)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidSubmission)
	}
	for i, item := range items {
		if item.ProductName == "" {
			return fmt.Errorf("%w: item %d: product name is required", ErrInvalidSubmission, i)
		}
		if !item.Category.Valid() {
			return fmt.Errorf("%w: item %d: unknown category %q", ErrInvalidSubmission, i, item.Category)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", ErrInvalidSubmission, i)
		}
		if item.Opinion != nil {
			return fmt.Errorf("%w: item %d: opinion cannot be set on submission", ErrInvalidSubmission, i)
		}
	}
	return nil
}

// Assign records the office and agent chosen for the case
func (c *Case) Assign(office Office, agent *Agent, at time.Time) error {
	if c.Status != CaseStatusSubmitted {
		return fmt.Errorf("%w: can only assign a submitted case", ErrInvalidStatus)
	}
	if !c.AgentID.IsZero() {
		return fmt.Errorf("%w: case is already assigned, use reassignment", ErrInvalidStatus)
	}

	c.Office = office
	c.AgentID = agent.ID
	c.AgentName = agent.Name
	c.AssignedAt = &at
	c.UpdatedAt = at

	c.addEvent(CaseEventTypeAssigned, "", fmt.Sprintf("Assigned to %s (%s)", agent.Name, office), map[string]any{
		"office":   office,
		"agent_id": agent.ID,
	}, at)

	return nil
}

// StartReview moves an assigned case to IN_PROGRESS
func (c *Case) StartReview(actorID types.ID, at time.Time) error {
	if c.Status != CaseStatusSubmitted {
		return fmt.Errorf("%w: can only start review on a submitted case", ErrInvalidStatus)
	}
	if c.AgentID.IsZero() {
		return fmt.Errorf("%w: case has no assigned agent", ErrInvalidStatus)
	}

	c.Status = CaseStatusInProgress
	c.UpdatedAt = at
	c.addEvent(CaseEventTypeReviewStarted, actorID, "Review started", map[string]any{
		"old_status": CaseStatusSubmitted,
		"new_status": CaseStatusInProgress,
	}, at)

	return nil
}

// RecordOpinion sets the opinion of the item at index. An item is reviewed once.
func (c *Case) RecordOpinion(index int, opinion Opinion, comment string, reviewerID types.ID, at time.Time) error {
	if c.Status != CaseStatusInProgress {
		return fmt.Errorf("%w: items can only be reviewed while the case is in progress", ErrInvalidStatus)
	}
	if index < 0 || index >= len(c.Items) {
		return fmt.Errorf("%w: index %d", ErrItemNotFound, index)
	}
	if !opinion.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOpinion, opinion)
	}

	item := &c.Items[index]
	if item.Reviewed() {
		return fmt.Errorf("%w: item %d", ErrOpinionAlreadySet, index)
	}

	item.Opinion = &opinion
	item.Comment = comment
	item.ReviewedAt = &at
	item.ReviewedBy = reviewerID
	c.UpdatedAt = at

	c.addEvent(CaseEventTypeItemReviewed, reviewerID, fmt.Sprintf("Item %d reviewed: %s", index, opinion), map[string]any{
		"index":   index,
		"opinion": opinion,
	}, at)

	return nil
}

// ReviewedCount returns the number of items with an opinion
func (c *Case) ReviewedCount() int {
	n := 0
	for _, item := range c.Items {
		if item.Reviewed() {
			n++
		}
	}
	return n
}

// Opinions returns the opinions recorded so far
func (c *Case) Opinions() []Opinion {
	opinions := make([]Opinion, 0, len(c.Items))
	for _, item := range c.Items {
		if item.Opinion != nil {
			opinions = append(opinions, *item.Opinion)
		}
	}
	return opinions
}

// Finalize computes the decision and closes the case. It fails with
// ErrIncompleteReview, leaving the case IN_PROGRESS, while any item lacks
// an opinion.
func (c *Case) Finalize(actorID types.ID, at time.Time) (Decision, error) {
	if c.Status != CaseStatusInProgress {
		return "", fmt.Errorf("%w: can only finalize a case in progress", ErrInvalidStatus)
	}
	if reviewed := c.ReviewedCount(); reviewed != len(c.Items) {
		return "", fmt.Errorf("%w: %d of %d reviewed", ErrIncompleteReview, reviewed, len(c.Items))
	}

	if len(c.Items) == 0 {
		return "", fmt.Errorf("%w: case has no items", ErrIncompleteReview)
	}
	decision := Aggregate(c.Opinions())
	if decision == nil {
		return "", fmt.Errorf("%w: item opinions cannot be aggregated", ErrInvalidOpinion)
	}

	c.Decision = decision
	c.Status = CaseStatusClosed
	c.ClosedAt = &at
	c.UpdatedAt = at

	c.addEvent(CaseEventTypeClosed, actorID, fmt.Sprintf("Case closed: %s", *decision), map[string]any{
		"old_status": CaseStatusInProgress,
		"decision":   *decision,
	}, at)

	return *decision, nil
}

// Reassign moves the case to target. The target must be eligible; on
// failure the case keeps its previous assignment. Load counters are left to
// the caller.
func (c *Case) Reassign(target Agent, actorID types.ID, at time.Time) (ReassignmentRecord, error) {
	if c.Status == CaseStatusClosed {
		return ReassignmentRecord{}, ErrCaseClosed
	}
	if !target.Eligible() {
		return ReassignmentRecord{}, fmt.Errorf("%w: %s", ErrAgentUnavailable, target.Name)
	}
	if target.ID == c.AgentID {
		return ReassignmentRecord{}, ErrSameAgent
	}

	record := ReassignmentRecord{
		AgentID:      target.ID,
		AgentName:    target.Name,
		FromAgentID:  c.AgentID,
		ReassignedAt: at,
	}

	c.Office = target.Office
	c.AgentID = target.ID
	c.AgentName = target.Name
	if c.AssignedAt == nil {
		c.AssignedAt = &at
	}
	c.Reassignments = append(c.Reassignments, record)
	c.UpdatedAt = at

	c.addEvent(CaseEventTypeReassigned, actorID, fmt.Sprintf("Reassigned to %s", target.Name), map[string]any{
		"from_agent_id": record.FromAgentID,
		"agent_id":      target.ID,
		"office":        target.Office,
	}, at)

	return record, nil
}

// EstimatedDelay returns the advisory processing delay in days
func (c *Case) EstimatedDelay() int {
	return EstimateDelay(len(c.Items), c.Office)
}

// Clone returns a copy that shares no mutable state with c. Pending domain
// events are not carried over.
func (c *Case) Clone() *Case {
	cp := *c
	cp.domainEvents = nil
	cp.Items = append([]Item(nil), c.Items...)
	cp.Reassignments = append([]ReassignmentRecord(nil), c.Reassignments...)
	cp.Events = append([]CaseEvent(nil), c.Events...)
	if c.Documents != nil {
		cp.Documents = make(Documents, len(c.Documents))
		for k, v := range c.Documents {
			cp.Documents[k] = v
		}
	}
	return &cp
}

// GetDomainEvents returns and clears domain events
func (c *Case) GetDomainEvents() []Event {
	events := c.domainEvents
	c.domainEvents = nil
	return events
}

func (c *Case) addEvent(eventType CaseEventType, actorID types.ID, description string, data map[string]any, at time.Time) {
	event := CaseEvent{
		ID:          types.NewID(),
		CaseID:      c.ID,
		Type:        eventType,
		ActorID:     actorID,
		Description: description,
		Data:        data,
		Timestamp:   at,
	}

	c.Events = append(c.Events, event)
	c.domainEvents = append(c.domainEvents, Event{
		Type:      string(eventType),
		CaseID:    c.ID,
		CaseEvent: event,
	})
}
