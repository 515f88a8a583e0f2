// Package mappings defines the persisted 1:1 association between a source
// entity and its target counterpart, and the store that holds them.
package mappings

import (
	"github.com/agentstation/utc"
	"github.com/google/uuid"
)

// MatchType records which rule produced a mapping.
type MatchType string

const (
	// MatchExactKey is a shared business identifier equal on both sides.
	MatchExactKey MatchType = "exact_key"
	// MatchExactName is an exact normalized-name match.
	MatchExactName MatchType = "exact_name"
	// MatchFuzzy is a composite-score match at or above the threshold.
	MatchFuzzy MatchType = "fuzzy"
	// MatchManual is an operator-created link.
	MatchManual MatchType = "manual"
	// MatchCreated marks a mapping born from creating the counterpart.
	MatchCreated MatchType = "created"
)

// SyncStatus is the outcome of the last run that touched a mapping.
type SyncStatus string

const (
	// StatusSynced means the last run completed its staged writes.
	StatusSynced SyncStatus = "synced"
	// StatusConflicted means the last run logged unresolved conflicts.
	StatusConflicted SyncStatus = "conflicted"
	// StatusSkipped means the last run abandoned the item after a failed
	// create retry.
	StatusSkipped SyncStatus = "skipped"
	// StatusWriteFailed means the mapping's batch write failed; the next
	// idempotent run retries it.
	StatusWriteFailed SyncStatus = "write_failed"
)

// Resolution is the configured outcome applied to a field conflict.
type Resolution string

const (
	// SourceWins overwrites the target value with the source value.
	SourceWins Resolution = "source_wins"
	// KeptBoth logs the difference and writes nothing.
	KeptBoth Resolution = "kept_both"
	// TargetPreserved explicitly refuses to overwrite the target value.
	TargetPreserved Resolution = "target_preserved"
)

// FieldConflict records a field whose non-empty values differ between the
// two systems. Conflicts are data, not errors.
type FieldConflict struct {
	Field       string     `json:"field" yaml:"field"`
	SourceValue string     `json:"source_value" yaml:"source_value"`
	TargetValue string     `json:"target_value" yaml:"target_value"`
	Resolution  Resolution `json:"resolution" yaml:"resolution"`
}

// Mapping is the persisted link between one source entity and one target
// entity. Unique on SourceID and unique on TargetID: strict 1:1. Deleted
// only by explicit manual unlink, never automatically.
type Mapping struct {
	ID             string            `json:"id" yaml:"id"`
	SourceID       string            `json:"source_id" yaml:"source_id"`
	SourceName     string            `json:"source_name" yaml:"source_name"`
	TargetID       string            `json:"target_id" yaml:"target_id"`
	TargetName     string            `json:"target_name" yaml:"target_name"`
	MatchType      MatchType         `json:"match_type" yaml:"match_type"`
	Direction      string            `json:"direction,omitempty" yaml:"direction,omitempty"`
	LastSyncAt     utc.Time          `json:"last_sync_at" yaml:"last_sync_at"`
	LastSyncStatus SyncStatus        `json:"last_sync_status" yaml:"last_sync_status"`
	Conflicts      []FieldConflict   `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// New creates a mapping between a source and target entity.
func New(sourceID, sourceName, targetID, targetName string, matchType MatchType) Mapping {
	return Mapping{
		ID:             uuid.NewString(),
		SourceID:       sourceID,
		SourceName:     sourceName,
		TargetID:       targetID,
		TargetName:     targetName,
		MatchType:      matchType,
		LastSyncAt:     utc.Now(),
		LastSyncStatus: StatusSynced,
	}
}

// Touch stamps the mapping with the outcome of the run that just
// processed it, replacing any conflicts from the previous run.
func (m *Mapping) Touch(status SyncStatus, conflicts []FieldConflict) {
	m.LastSyncAt = utc.Now()
	m.LastSyncStatus = status
	m.Conflicts = conflicts
}

// Filter narrows a List call. Zero values match everything.
type Filter struct {
	MatchType MatchType
	Status    SyncStatus
}

// Matches reports whether the mapping satisfies the filter.
func (f Filter) Matches(m Mapping) bool {
	if f.MatchType != "" && m.MatchType != f.MatchType {
		return false
	}
	if f.Status != "" && m.LastSyncStatus != f.Status {
		return false
	}
	return true
}
