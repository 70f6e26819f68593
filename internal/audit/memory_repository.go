package audit

import (
	"context"
	"sync"

	"github.com/coc-admin/platform/internal/shared/errors"
	"github.com/coc-admin/platform/internal/shared/types"
)

// MemoryRepository keeps the audit chain in process memory. Used with
// STORAGE=memory; entries do not survive a restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*AuditEntry
}

// NewMemoryRepository creates an empty audit chain
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Initialize(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) Append(ctx context.Context, entry *AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.Sequence = int64(len(r.entries)) + 1
	entry.PrevHash = r.lastHashLocked()
	entry.Hash = entry.ComputeHash()

	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id types.ID) (*AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, errors.NotFound("audit entry", id.String())
}

func (r *MemoryRepository) List(ctx context.Context, filter ListEntriesFilter) ([]*AuditEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := clampLimit(filter.Limit, defaultListLimit, maxListLimit)
	entries := []*AuditEntry{}
	total := 0
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !filter.Matches(e) {
			continue
		}
		total++
		if total <= filter.Offset || len(entries) >= limit {
			continue
		}
		cp := *e
		entries = append(entries, &cp)
	}
	return entries, total, nil
}

func (r *MemoryRepository) GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*AuditEntry, error) {
	entries, _, err := r.List(ctx, ListEntriesFilter{
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Limit:        limit,
	})
	return entries, err
}

func (r *MemoryRepository) VerifyChain(ctx context.Context, limit int, includeDetails bool) (*VerifyResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit = clampLimit(limit, defaultVerifyLimit, maxVerifyLimit)
	newest := make([]*AuditEntry, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(newest) < limit; i-- {
		newest = append(newest, r.entries[i])
	}
	return verifyEntries(newest, includeDetails), nil
}

func (r *MemoryRepository) GetLastHash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastHashLocked()
}

func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

func (r *MemoryRepository) lastHashLocked() string {
	if len(r.entries) == 0 {
		return ""
	}
	return r.entries[len(r.entries)-1].Hash
}
