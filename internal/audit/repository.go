package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coc-admin/platform/internal/shared/errors"
	"github.com/coc-admin/platform/internal/shared/types"
)

// Repository provides append-only audit log operations on PostgreSQL
type Repository struct {
	pool     *pgxpool.Pool
	mu       sync.Mutex
	lastHash string
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, sequence, timestamp, hash, COALESCE(prev_hash, ''),
	actor_type, actor_id, action, resource_type, resource_id,
	changes, COALESCE(correlation_id, '')`

// Initialize loads the last hash from the database
func (r *Repository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT hash FROM audit.entries
		ORDER BY sequence DESC
		LIMIT 1
	`).Scan(&hash)
	if err != nil && err != pgx.ErrNoRows {
		return errors.Wrap(err, "failed to get last audit hash")
	}

	r.lastHash = hash
	return nil
}

// Append appends a new audit entry. Appends are serialized so prev_hash
// always names the row written just before.
func (r *Repository) Append(ctx context.Context, entry *AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The sequence is part of the hash, so it is reserved before the insert
	if err := r.pool.QueryRow(ctx,
		`SELECT nextval(pg_get_serial_sequence('audit.entries', 'sequence'))`,
	).Scan(&entry.Sequence); err != nil {
		return errors.Wrap(err, "failed to reserve audit sequence")
	}
	entry.PrevHash = r.lastHash
	entry.Hash = entry.calculateHash()

	var changes []byte
	if len(entry.Changes) > 0 {
		var err error
		if changes, err = json.Marshal(entry.Changes); err != nil {
			return errors.Wrap(err, "failed to marshal changes")
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit.entries (
			id, sequence, timestamp, hash, prev_hash,
			actor_type, actor_id, action, resource_type, resource_id,
			changes, correlation_id
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, NULLIF($12, ''))`,
		entry.ID, entry.Sequence, entry.Timestamp, entry.Hash, entry.PrevHash,
		entry.ActorType, entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID,
		changes, entry.CorrelationID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to append audit entry")
	}

	r.lastHash = entry.Hash
	return nil
}

// List lists audit entries with filters (read-only)
func (r *Repository) List(ctx context.Context, filter ListEntriesFilter) ([]*AuditEntry, int, error) {
	var conditions []string
	var args []any
	argNum := 1

	add := func(cond string, value any) {
		conditions = append(conditions, fmt.Sprintf(cond, argNum))
		args = append(args, value)
		argNum++
	}

	if filter.ActorID != nil {
		add("actor_id = $%d", *filter.ActorID)
	}
	if filter.Action != "" {
		add("action LIKE $%d", filter.Action+"%")
	}
	if filter.ResourceType != "" {
		add("resource_type = $%d", filter.ResourceType)
	}
	if filter.ResourceID != nil {
		add("resource_id = $%d", *filter.ResourceID)
	}
	if filter.StartTime != nil {
		add("timestamp >= $%d", *filter.StartTime)
	}
	if filter.EndTime != nil {
		add("timestamp <= $%d", *filter.EndTime)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit.entries "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count audit entries")
	}

	query := fmt.Sprintf(`SELECT %s FROM audit.entries %s
		ORDER BY sequence DESC
		LIMIT $%d OFFSET $%d`, entryColumns, whereClause, argNum, argNum+1)
	args = append(args, clampLimit(filter.Limit, defaultListLimit, maxListLimit), filter.Offset)

	entries, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// FindByID finds an audit entry by ID (read-only)
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*AuditEntry, error) {
	entries, err := r.query(ctx, "SELECT "+entryColumns+" FROM audit.entries WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NotFound("audit entry", id.String())
	}
	return entries[0], nil
}

// GetByResource gets all audit entries for a specific resource
func (r *Repository) GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*AuditEntry, error) {
	entries, _, err := r.List(ctx, ListEntriesFilter{
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Limit:        limit,
	})
	return entries, err
}

// VerifyChain verifies content hashes and linkage of the newest entries
func (r *Repository) VerifyChain(ctx context.Context, limit int, includeDetails bool) (*VerifyResult, error) {
	entries, err := r.query(ctx, "SELECT "+entryColumns+` FROM audit.entries
		ORDER BY sequence DESC
		LIMIT $1`, clampLimit(limit, defaultVerifyLimit, maxVerifyLimit))
	if err != nil {
		return nil, err
	}
	return verifyEntries(entries, includeDetails), nil
}

func (r *Repository) GetLastHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit.entries").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count audit entries")
	}
	return count, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]*AuditEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query audit entries")
	}
	defer rows.Close()

	entries := []*AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		var changes []byte
		err := rows.Scan(
			&e.ID, &e.Sequence, &e.Timestamp, &e.Hash, &e.PrevHash,
			&e.ActorType, &e.ActorID, &e.Action, &e.ResourceType, &e.ResourceID,
			&changes, &e.CorrelationID,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan audit entry")
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &e.Changes); err != nil {
				return nil, errors.Wrap(err, "failed to decode audit changes")
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
