// Package history provides the append-only change log the sync engine
// writes to: one record per created counterpart or propagated field, and
// exactly one audit record per run. Records age out after a configured
// retention window.
package history

import (
	"context"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
)

// DefaultRetention is how long change records are kept before Purge
// removes them.
const DefaultRetention = 14 * 24 * time.Hour

// ChangeType classifies a history record.
type ChangeType string

const (
	// ChangeCreated records a counterpart record created on the target.
	ChangeCreated ChangeType = "created"
	// ChangeFieldUpdate records one field value propagated to the target.
	ChangeFieldUpdate ChangeType = "field_update"
	// ChangeRunAudit is the single per-run audit entry with counts and
	// duration. Written for every run: success, partial, or failure.
	ChangeRunAudit ChangeType = "run_audit"
)

// Record is one append-only change history entry.
type Record struct {
	ID         string            `json:"id" yaml:"id"`
	EntityType string            `json:"entity_type" yaml:"entity_type"`
	EntityID   string            `json:"entity_id" yaml:"entity_id"`
	ChangeType ChangeType        `json:"change_type" yaml:"change_type"`
	Field      string            `json:"field,omitempty" yaml:"field,omitempty"`
	OldValue   string            `json:"old_value,omitempty" yaml:"old_value,omitempty"`
	NewValue   string            `json:"new_value,omitempty" yaml:"new_value,omitempty"`
	Snapshot   map[string]string `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	SyncedAt   utc.Time          `json:"synced_at" yaml:"synced_at"`
}

// NewRecord creates a change record stamped with the current time.
func NewRecord(entityType, entityID string, changeType ChangeType) Record {
	return Record{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		ChangeType: changeType,
		SyncedAt:   utc.Now(),
	}
}

// FieldUpdate creates a field_update record for one propagated value.
func FieldUpdate(entityType, entityID, field, oldValue, newValue string) Record {
	r := NewRecord(entityType, entityID, ChangeFieldUpdate)
	r.Field = field
	r.OldValue = oldValue
	r.NewValue = newValue
	return r
}

// Created creates a created record carrying the property snapshot the
// counterpart was born with.
func Created(entityType, entityID string, snapshot map[string]string) Record {
	r := NewRecord(entityType, entityID, ChangeCreated)
	r.Snapshot = snapshot
	return r
}

// Log is the append-only store for change records.
type Log interface {
	// Append adds a record. Records are never updated in place.
	Append(ctx context.Context, r Record) error

	// List returns records newest-first, at most limit (0 means all).
	List(ctx context.Context, limit int) ([]Record, error)

	// Purge deletes records older than the cutoff and returns how many
	// were removed.
	Purge(ctx context.Context, olderThan time.Time) (int, error)

	// Len returns the number of stored records.
	Len(ctx context.Context) (int, error)
}
