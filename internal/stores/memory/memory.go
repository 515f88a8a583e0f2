// Package memory provides in-memory implementations of the snapshot
// store, mapping store, and change history log. They back tests,
// dry-runs, and the file-backed stores that load into them.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/entities"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/history"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/mappings"
)

// SnapshotStore is an in-memory entities.SnapshotStore keyed by ExternalID.
type SnapshotStore struct {
	mu       sync.RWMutex
	byID     map[string]entities.Entity
	readOnly bool
}

// NewSnapshotStore creates an empty snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{byID: make(map[string]entities.Entity)}
}

// SetReadOnly freezes the store against further upserts.
func (s *SnapshotStore) SetReadOnly(readOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readOnly = readOnly
}

// Upsert implements entities.SnapshotStore.
func (s *SnapshotStore) Upsert(_ context.Context, e entities.Entity) error {
	if e.ExternalID == "" {
		return errors.NewValidationError("external_id", e.ExternalID, "must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return errors.ErrReadOnly
	}
	s.byID[e.ExternalID] = e.Copy()
	return nil
}

// Get implements entities.SnapshotStore.
func (s *SnapshotStore) Get(_ context.Context, externalID string) (entities.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[externalID]
	if !ok {
		return entities.Entity{}, errors.NewNotFoundError("entity", externalID)
	}
	return e.Copy(), nil
}

// List implements entities.SnapshotStore. Entities come back sorted by
// ExternalID so callers iterate deterministically.
func (s *SnapshotStore) List(_ context.Context) ([]entities.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Entity, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, e.Copy())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExternalID < out[j].ExternalID
	})
	return out, nil
}

// Len implements entities.SnapshotStore.
func (s *SnapshotStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// MappingStore is an in-memory mappings.Store enforcing strict 1:1.
type MappingStore struct {
	mu       sync.RWMutex
	bySource map[string]mappings.Mapping
	byTarget map[string]string // targetID -> sourceID
}

// NewMappingStore creates an empty mapping store.
func NewMappingStore() *MappingStore {
	return &MappingStore{
		bySource: make(map[string]mappings.Mapping),
		byTarget: make(map[string]string),
	}
}

// GetBySource implements mappings.Store.
func (s *MappingStore) GetBySource(_ context.Context, sourceID string) (mappings.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.bySource[sourceID]
	if !ok {
		return mappings.Mapping{}, errors.NewNotFoundError("mapping", sourceID)
	}
	return m, nil
}

// GetByTarget implements mappings.Store.
func (s *MappingStore) GetByTarget(_ context.Context, targetID string) (mappings.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sourceID, ok := s.byTarget[targetID]
	if !ok {
		return mappings.Mapping{}, errors.NewNotFoundError("mapping", targetID)
	}
	return s.bySource[sourceID], nil
}

// Upsert implements mappings.Store: update-if-sourceID-exists else insert.
// The incoming mapping keeps the stored row's ID on update so repeated
// upserts converge instead of minting new rows.
func (s *MappingStore) Upsert(_ context.Context, m mappings.Mapping) error {
	if m.SourceID == "" || m.TargetID == "" {
		return errors.NewValidationError("mapping", m, "source and target ids must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.bySource[m.SourceID]; ok {
		// 1:1 invariant: moving a source onto a target claimed by a
		// different source is rejected.
		if owner, taken := s.byTarget[m.TargetID]; taken && owner != m.SourceID {
			return errors.NewAlreadyMappedError(string(entities.SideTarget), m.TargetID, s.bySource[owner].ID)
		}
		if existing.TargetID != m.TargetID {
			delete(s.byTarget, existing.TargetID)
		}
		m.ID = existing.ID
		s.bySource[m.SourceID] = m
		s.byTarget[m.TargetID] = m.SourceID
		return nil
	}

	if owner, taken := s.byTarget[m.TargetID]; taken {
		return errors.NewAlreadyMappedError(string(entities.SideTarget), m.TargetID, s.bySource[owner].ID)
	}

	s.bySource[m.SourceID] = m
	s.byTarget[m.TargetID] = m.SourceID
	return nil
}

// Delete implements mappings.Store. Manual unlink only.
func (s *MappingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sourceID, m := range s.bySource {
		if m.ID == id {
			delete(s.bySource, sourceID)
			delete(s.byTarget, m.TargetID)
			return nil
		}
	}
	return errors.NewNotFoundError("mapping", id)
}

// List implements mappings.Store.
func (s *MappingStore) List(_ context.Context, f mappings.Filter) ([]mappings.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]mappings.Mapping, 0, len(s.bySource))
	for _, m := range s.bySource {
		if f.Matches(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SourceID < out[j].SourceID
	})
	return out, nil
}

// Len implements mappings.Store.
func (s *MappingStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySource), nil
}

// HistoryLog is an in-memory history.Log.
type HistoryLog struct {
	mu      sync.RWMutex
	records []history.Record
}

// NewHistoryLog creates an empty history log.
func NewHistoryLog() *HistoryLog {
	return &HistoryLog{}
}

// Append implements history.Log.
func (l *HistoryLog) Append(_ context.Context, r history.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	return nil
}

// List implements history.Log, newest first.
func (l *HistoryLog) List(_ context.Context, limit int) ([]history.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]history.Record, len(l.records))
	copy(out, l.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SyncedAt.Time.After(out[j].SyncedAt.Time)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Purge implements history.Log.
func (l *HistoryLog) Purge(_ context.Context, olderThan time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.records[:0]
	removed := 0
	for _, r := range l.records {
		if r.SyncedAt.Time.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	l.records = kept
	return removed, nil
}

// Len implements history.Log.
func (l *HistoryLog) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records), nil
}
