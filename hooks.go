package synchub

import (
	"sync"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/mappings"
)

// MappingCreatedHook is called when a run or manual link creates a new
// mapping.
type MappingCreatedHook func(mappings.Mapping)

// ConflictHook is called for each field conflict a run logs.
type ConflictHook func(mappingID string, conflict mappings.FieldConflict)

// RunCompletedHook is called once per completed run with the summary.
type RunCompletedHook func(*Summary)

// hooks manages registered event callbacks. Callbacks run synchronously
// in registration order; downstream delivery (email, webhooks) belongs
// to the registrant.
type hooks struct {
	mu             sync.RWMutex
	mappingCreated []MappingCreatedHook
	conflict       []ConflictHook
	runCompleted   []RunCompletedHook
}

func newHooks() *hooks {
	return &hooks{}
}

func (h *hooks) onMappingCreated(hook MappingCreatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mappingCreated = append(h.mappingCreated, hook)
}

func (h *hooks) onConflict(hook ConflictHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conflict = append(h.conflict, hook)
}

func (h *hooks) onRunCompleted(hook RunCompletedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runCompleted = append(h.runCompleted, hook)
}

func (h *hooks) triggerMappingCreated(m mappings.Mapping) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.mappingCreated {
		hook(m)
	}
}

func (h *hooks) triggerConflict(mappingID string, c mappings.FieldConflict) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.conflict {
		hook(mappingID, c)
	}
}

func (h *hooks) triggerRunCompleted(s *Summary) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.runCompleted {
		hook(s)
	}
}
