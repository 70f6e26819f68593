package domain

import (
	"time"

	"github.com/coc-admin/platform/internal/shared/types"
)

// Item is one merchandise line of a case
type Item struct {
	ProductName         string   `json:"product_name"`
	Category            Category `json:"category"`
	Quantity            float64  `json:"quantity"`
	Unit                string   `json:"unit"`
	DeclaredValue       float64  `json:"declared_value"`
	Manufacturer        string   `json:"manufacturer"`
	ManufacturerAddress string   `json:"manufacturer_address"`
	CountryOfOrigin     string   `json:"country_of_origin"`

	// Review. Opinion is nil until the item is reviewed and immutable afterwards.
	Opinion    *Opinion   `json:"opinion,omitempty"`
	Comment    string     `json:"comment,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy types.ID   `json:"reviewed_by,omitempty"`
}

// Reviewed reports whether the item has an opinion
func (i Item) Reviewed() bool {
	return i.Opinion != nil
}

// ReassignmentRecord is emitted by a successful reassignment
type ReassignmentRecord struct {
	AgentID      types.ID  `json:"agent_id"`
	AgentName    string    `json:"agent_name"`
	FromAgentID  types.ID  `json:"from_agent_id,omitempty"`
	ReassignedAt time.Time `json:"reassigned_at"`
}

// ApplicantRole is the role of the user submitting a case
type ApplicantRole string

const (
	ApplicantImporter ApplicantRole = "importer"
	ApplicantExporter ApplicantRole = "exporter"
)

// CaseEventType defines types of case events
type CaseEventType string

const (
	CaseEventTypeSubmitted     CaseEventType = "submitted"
	CaseEventTypeAssigned      CaseEventType = "assigned"
	CaseEventTypeReviewStarted CaseEventType = "review_started"
	CaseEventTypeItemReviewed  CaseEventType = "item_reviewed"
	CaseEventTypeReassigned    CaseEventType = "reassigned"
	CaseEventTypeClosed        CaseEventType = "closed"
)

// CaseEvent is an entry of the case timeline
type CaseEvent struct {
	ID          types.ID       `json:"id"`
	CaseID      types.ID       `json:"case_id"`
	Type        CaseEventType  `json:"type"`
	ActorID     types.ID       `json:"actor_id,omitempty"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Event is a domain event for publishing
type Event struct {
	Type      string    `json:"type"`
	CaseID    types.ID  `json:"case_id"`
	CaseEvent CaseEvent `json:"case_event"`
}
