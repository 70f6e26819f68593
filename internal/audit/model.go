package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/coc-admin/platform/internal/shared/types"
)

// ActorType defines the type of actor
type ActorType string

const (
	ActorTypeApplicant  ActorType = "applicant"
	ActorTypeAgent      ActorType = "agent"
	ActorTypeSupervisor ActorType = "supervisor"
	ActorTypeSystem     ActorType = "system"
)

// actorTypeForRole maps a token role to the audited actor type
func actorTypeForRole(role string) ActorType {
	switch role {
	case "importer", "exporter":
		return ActorTypeApplicant
	case "agent":
		return ActorTypeAgent
	case "supervisor", "admin":
		return ActorTypeSupervisor
	}
	return ActorTypeSystem
}

// AuditEntry represents an immutable audit log entry
type AuditEntry struct {
	ID        types.ID  `json:"id"`
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prev_hash,omitempty"`

	ActorType ActorType `json:"actor_type"`
	ActorID   types.ID  `json:"actor_id,omitempty"`

	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   *types.ID `json:"resource_id,omitempty"`

	Changes       map[string]any `json:"changes,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// NewAuditEntry creates an entry chained to prevHash
func NewAuditEntry(
	actorType ActorType,
	actorID types.ID,
	action, resourceType string,
	resourceID *types.ID,
	changes map[string]any,
	prevHash string,
) *AuditEntry {
	entry := &AuditEntry{
		ID: types.NewID(),
		// PostgreSQL keeps microseconds; the hash must survive a round trip
		Timestamp:    time.Now().UTC().Truncate(time.Microsecond),
		PrevHash:     prevHash,
		ActorType:    actorType,
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      changes,
	}
	entry.Hash = entry.calculateHash()
	return entry
}

// calculateHash returns the SHA-256 of the entry content. Map keys are
// encoded in sorted order, so the digest does not depend on how changes
// were decoded.
func (e *AuditEntry) calculateHash() string {
	data := map[string]any{
		"id":            e.ID,
		"sequence":      e.Sequence,
		"timestamp":     e.Timestamp.UTC().Format(time.RFC3339Nano),
		"prev_hash":     e.PrevHash,
		"actor_type":    e.ActorType,
		"actor_id":      e.ActorID,
		"action":        e.Action,
		"resource_type": e.ResourceType,
	}
	if e.ResourceID != nil {
		data["resource_id"] = *e.ResourceID
	}
	if len(e.Changes) > 0 {
		data["changes"] = e.Changes
	}

	raw, _ := json.Marshal(data)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// VerifyHash verifies the entry's hash
func (e *AuditEntry) VerifyHash() bool {
	return e.Hash == e.calculateHash()
}

// ComputeHash computes and returns the correct hash for this entry
func (e *AuditEntry) ComputeHash() string {
	return e.calculateHash()
}

// ListEntriesFilter defines filters for listing audit entries
type ListEntriesFilter struct {
	ActorID      *types.ID  `json:"actor_id,omitempty"`
	Action       string     `json:"action,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
	ResourceID   *types.ID  `json:"resource_id,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	Offset       int        `json:"offset,omitempty"`
}

// Matches reports whether the entry passes the filter. Action matches
// by prefix, so "case." selects every case action.
func (f ListEntriesFilter) Matches(e *AuditEntry) bool {
	if f.ActorID != nil && e.ActorID != *f.ActorID {
		return false
	}
	if f.Action != "" && (len(e.Action) < len(f.Action) || e.Action[:len(f.Action)] != f.Action) {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != nil && (e.ResourceID == nil || *e.ResourceID != *f.ResourceID) {
		return false
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

// VerifyResult contains detailed verification results
type VerifyResult struct {
	Valid          bool                `json:"valid"`
	Checked        int                 `json:"checked"`
	ContentValid   int                 `json:"content_valid"`
	ContentInvalid int                 `json:"content_invalid"`
	LinkageValid   int                 `json:"linkage_valid"`
	LinkageInvalid int                 `json:"linkage_invalid"`
	Violations     []string            `json:"violations,omitempty"`
	Entries        []VerifyEntryResult `json:"entries,omitempty"`
}

// VerifyEntryResult contains verification result for a single entry
type VerifyEntryResult struct {
	ID            types.ID `json:"id"`
	Sequence      int64    `json:"sequence"`
	Hash          string   `json:"hash"`
	ComputedHash  string   `json:"computed_hash,omitempty"`
	PrevHash      string   `json:"prev_hash"`
	Valid         bool     `json:"valid"`
	ContentValid  bool     `json:"content_valid"`
	LinkageValid  bool     `json:"linkage_valid"`
	Action        string   `json:"action"`
	ViolationType string   `json:"violation_type,omitempty"` // content, linkage or both
}

// verifyEntries checks content hashes and prev_hash linkage of entries
// given newest first. Every store verifies through here.
func verifyEntries(entries []*AuditEntry, includeDetails bool) *VerifyResult {
	result := &VerifyResult{Valid: true}

	for i, e := range entries {
		check := VerifyEntryResult{
			ID:           e.ID,
			Sequence:     e.Sequence,
			Hash:         e.Hash,
			PrevHash:     e.PrevHash,
			Action:       e.Action,
			ContentValid: true,
			LinkageValid: true,
			Valid:        true,
		}

		check.ComputedHash = e.ComputeHash()
		if check.ComputedHash != e.Hash {
			check.ContentValid = false
			check.Valid = false
			check.ViolationType = "content"
			result.ContentInvalid++
			result.Valid = false
			result.Violations = append(result.Violations,
				fmt.Sprintf("CONTENT TAMPERED: entry %d stored hash does not match content", e.Sequence))
		} else {
			result.ContentValid++
		}

		// entries[i+1] is the one written just before e
		if i+1 < len(entries) && e.PrevHash != entries[i+1].Hash {
			check.LinkageValid = false
			check.Valid = false
			if check.ViolationType == "content" {
				check.ViolationType = "both"
			} else {
				check.ViolationType = "linkage"
			}
			result.LinkageInvalid++
			result.Valid = false
			result.Violations = append(result.Violations,
				fmt.Sprintf("CHAIN BROKEN: entry %d prev_hash does not match entry %d hash", e.Sequence, entries[i+1].Sequence))
		} else {
			result.LinkageValid++
		}

		if includeDetails {
			result.Entries = append(result.Entries, check)
		}
		result.Checked++
	}

	return result
}

// Audited actions. Case and agent actions mirror the published event types.
const (
	ActionCaseSubmitted     = "case.submitted"
	ActionCaseReviewStarted = "case.review_started"
	ActionCaseItemReviewed  = "case.item_reviewed"
	ActionCaseReassigned    = "case.reassigned"
	ActionCaseClosed        = "case.closed"

	ActionAgentRegistered = "agent.registered"
	ActionAgentUpdated    = "agent.updated"
)
