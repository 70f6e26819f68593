package audit

import (
	"context"

	"github.com/coc-admin/platform/internal/shared/types"
)

// AuditRepository defines the interface for audit storage operations.
// PostgreSQL, KurrentDB and in-memory implementations are interchangeable.
type AuditRepository interface {
	// Initialize loads initial state (last hash, sequence)
	Initialize(ctx context.Context) error

	// Append assigns sequence and prev_hash, rehashes and stores the entry
	Append(ctx context.Context, entry *AuditEntry) error

	FindByID(ctx context.Context, id types.ID) (*AuditEntry, error)

	// List returns matching entries newest first, with the total match count
	List(ctx context.Context, filter ListEntriesFilter) ([]*AuditEntry, int, error)

	// GetByResource gets audit entries for a specific resource
	GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*AuditEntry, error)

	// VerifyChain verifies the newest limit entries of the chain
	VerifyChain(ctx context.Context, limit int, includeDetails bool) (*VerifyResult, error)

	// GetLastHash returns the last hash in the chain
	GetLastHash() string

	// Count returns the total number of audit entries
	Count(ctx context.Context) (int, error)
}

var (
	_ AuditRepository = (*Repository)(nil)
	_ AuditRepository = (*KurrentDBRepository)(nil)
	_ AuditRepository = (*MemoryRepository)(nil)
)

const (
	defaultListLimit   = 50
	maxListLimit       = 500
	defaultVerifyLimit = 100
	maxVerifyLimit     = 10000
)

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
