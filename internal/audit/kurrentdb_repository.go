package audit

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/coc-admin/platform/internal/shared/errors"
	"github.com/coc-admin/platform/internal/shared/types"
)

const (
	// AuditStreamName is the stream where all audit entries are stored
	AuditStreamName = "coc-audit"
	// AuditEventType is the event type for audit entries
	AuditEventType = "AuditEntry"

	// maxStreamRead bounds full scans of the audit stream
	maxStreamRead = 100000
)

// KurrentDBRepository provides append-only audit log operations using KurrentDB.
// The stream itself is append-only; entries cannot be modified or deleted.
type KurrentDBRepository struct {
	client   *esdb.Client
	mu       sync.Mutex
	lastHash string
	sequence int64
}

// NewKurrentDBRepository creates a new KurrentDB-based audit repository
func NewKurrentDBRepository(client *esdb.Client) *KurrentDBRepository {
	return &KurrentDBRepository{client: client}
}

// Initialize loads the last hash and sequence from KurrentDB
func (r *KurrentDBRepository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.read(ctx, esdb.Backwards, 1)
	if err != nil {
		return err
	}
	r.lastHash, r.sequence = "", 0
	if len(entries) > 0 {
		r.lastHash = entries[0].Hash
		r.sequence = entries[0].Sequence
	}
	return nil
}

// Append appends a new audit entry (thread-safe)
func (r *KurrentDBRepository) Append(ctx context.Context, entry *AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.Sequence = r.sequence + 1
	entry.PrevHash = r.lastHash
	entry.Hash = entry.ComputeHash()

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit entry")
	}
	metadata, err := json.Marshal(map[string]any{"sequence": entry.Sequence, "hash": entry.Hash})
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit metadata")
	}

	eventData := esdb.EventData{
		EventID:     uuid.New(),
		EventType:   AuditEventType,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		Metadata:    metadata,
	}

	// The expected revision is the entry count so far; a concurrent writer
	// in another process makes the append fail instead of forking the chain.
	opts := esdb.AppendToStreamOptions{ExpectedRevision: esdb.NoStream{}}
	if r.sequence > 0 {
		opts.ExpectedRevision = esdb.Revision(uint64(r.sequence - 1))
	}
	if _, err := r.client.AppendToStream(ctx, AuditStreamName, opts, eventData); err != nil {
		return errors.Wrap(err, "failed to append audit entry")
	}

	r.sequence = entry.Sequence
	r.lastHash = entry.Hash
	return nil
}

// FindByID scans the stream for the entry
func (r *KurrentDBRepository) FindByID(ctx context.Context, id types.ID) (*AuditEntry, error) {
	entries, err := r.read(ctx, esdb.Backwards, maxStreamRead)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.NotFound("audit entry", id.String())
}

// List lists audit entries with filters, newest first
func (r *KurrentDBRepository) List(ctx context.Context, filter ListEntriesFilter) ([]*AuditEntry, int, error) {
	all, err := r.read(ctx, esdb.Backwards, maxStreamRead)
	if err != nil {
		return nil, 0, err
	}

	limit := clampLimit(filter.Limit, defaultListLimit, maxListLimit)
	entries := []*AuditEntry{}
	total := 0
	for _, e := range all {
		if !filter.Matches(e) {
			continue
		}
		total++
		if total <= filter.Offset || len(entries) >= limit {
			continue
		}
		entries = append(entries, e)
	}
	return entries, total, nil
}

// GetByResource gets audit entries for a specific resource
func (r *KurrentDBRepository) GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*AuditEntry, error) {
	entries, _, err := r.List(ctx, ListEntriesFilter{
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Limit:        limit,
	})
	return entries, err
}

// VerifyChain verifies the integrity of the newest entries
func (r *KurrentDBRepository) VerifyChain(ctx context.Context, limit int, includeDetails bool) (*VerifyResult, error) {
	entries, err := r.read(ctx, esdb.Backwards, uint64(clampLimit(limit, defaultVerifyLimit, maxVerifyLimit)))
	if err != nil {
		return nil, err
	}
	return verifyEntries(entries, includeDetails), nil
}

// GetLastHash returns the last hash in the chain
func (r *KurrentDBRepository) GetLastHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

// Count returns the number of entries appended so far
func (r *KurrentDBRepository) Count(ctx context.Context) (int, error) {
	entries, err := r.read(ctx, esdb.Backwards, 1)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	return int(entries[0].Sequence), nil
}

// read decodes up to count audit entries from the stream. A missing
// stream is an empty chain.
func (r *KurrentDBRepository) read(ctx context.Context, direction esdb.Direction, count uint64) ([]*AuditEntry, error) {
	opts := esdb.ReadStreamOptions{Direction: direction, From: esdb.Start{}}
	if direction == esdb.Backwards {
		opts.From = esdb.End{}
	}

	stream, err := r.client.ReadStream(ctx, AuditStreamName, opts, count)
	if err != nil {
		if isStreamNotFound(err) {
			return []*AuditEntry{}, nil
		}
		return nil, errors.Wrap(err, "failed to read audit stream")
	}
	defer stream.Close()

	entries := []*AuditEntry{}
	for {
		event, err := stream.Recv()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isStreamNotFound(err) {
				return []*AuditEntry{}, nil
			}
			return nil, errors.Wrap(err, "failed to read audit stream")
		}
		if event.Event == nil || event.Event.EventType != AuditEventType {
			continue
		}
		var entry AuditEntry
		if err := json.Unmarshal(event.Event.Data, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode audit entry %s: %w", event.Event.EventID, err)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

func isStreamNotFound(err error) bool {
	var esdbErr *esdb.Error
	return stderrors.As(err, &esdbErr) && esdbErr.Code() == esdb.ErrorCodeResourceNotFound
}
