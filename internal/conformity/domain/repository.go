package domain

import (
	"context"
	"strings"

	"github.com/coc-admin/platform/internal/shared/types"
)

// Repository defines the interface for case persistence
type Repository interface {
	Save(ctx context.Context, c *Case) error
	Update(ctx context.Context, c *Case) error
	FindByID(ctx context.Context, id types.ID) (*Case, error)
	FindByCaseNumber(ctx context.Context, caseNumber string) (*Case, error)
	List(ctx context.Context, filter ListFilter) ([]Case, int, error)
	// LatestCaseNumber returns the highest case number issued, or "" when none
	LatestCaseNumber(ctx context.Context) (string, error)
}

// ListFilter defines filters for listing cases
type ListFilter struct {
	Status  *CaseStatus `json:"status,omitempty"`
	Office  *Office     `json:"office,omitempty"`
	AgentID *types.ID   `json:"agent_id,omitempty"`
	Search  string      `json:"search,omitempty"`
	Limit   int         `json:"limit,omitempty"`
	Offset  int         `json:"offset,omitempty"`

	// ApplicantID restricts the list to one applicant's cases
	ApplicantID *types.ID `json:"applicant_id,omitempty"`
}

// Matches reports whether c passes the filter, ignoring paging
func (f ListFilter) Matches(c *Case) bool {
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.Office != nil && c.Office != *f.Office {
		return false
	}
	if f.AgentID != nil && c.AgentID != *f.AgentID {
		return false
	}
	if f.ApplicantID != nil && c.ApplicantID != *f.ApplicantID {
		return false
	}
	if f.Search != "" && !containsFold(c.CaseNumber, f.Search) && !c.hasProduct(f.Search) {
		return false
	}
	return true
}

func (c *Case) hasProduct(search string) bool {
	for _, item := range c.Items {
		if containsFold(item.ProductName, search) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
