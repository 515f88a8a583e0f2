// Package synchub reconciles records describing the same real-world
// entities across two external systems that share no identifier scheme.
// It matches counterparts, propagates field values without destroying
// existing data, creates missing counterparts, and remembers every
// pairing so future runs are fast and stable.
package synchub

import (
	"context"
	"time"

	"github.com/artificialadnaan/trocksynchubv3-sub001/internal/runlock"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/entities"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/history"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/logging"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/mappings"
)

// Hub is the entity-matching and synchronization engine for one system
// pair. The scheduler or event handler driving it lives elsewhere.
type Hub interface {
	// RunSync drives one full pass: extract, match, resolve, commit
	// (per mode), audit. A second trigger while a run is active is
	// rejected with a ConcurrentRunError, never queued.
	RunSync(ctx context.Context, mode Mode) (*Summary, error)

	// CreateForSource is the creation-trigger fast path: immediately
	// create (or reuse) the counterpart for one source entity instead
	// of waiting for the next scheduled full pass.
	CreateForSource(ctx context.Context, sourceID string) (mappings.Mapping, error)

	// CreateManualMapping links a source and target entity by operator
	// decision. Fails with an AlreadyMappedError when either side is
	// already claimed.
	CreateManualMapping(ctx context.Context, sourceID, targetID string) (mappings.Mapping, error)

	// DeleteMapping is the explicit manual unlink; nothing else ever
	// deletes a mapping.
	DeleteMapping(ctx context.Context, id string) error

	// Unmatched lists entities on either side with no counterpart.
	Unmatched(ctx context.Context) (*UnmatchedReport, error)

	// Overview returns point-in-time stats over the local state.
	Overview(ctx context.Context) (*Overview, error)

	// PurgeHistory removes change records older than the retention
	// window and returns how many were removed.
	PurgeHistory(ctx context.Context) (int, error)

	// OnMappingCreated registers a callback fired for each new mapping.
	OnMappingCreated(MappingCreatedHook)

	// OnConflict registers a callback fired for each field conflict.
	OnConflict(ConflictHook)

	// OnRunCompleted registers a callback fired after every run.
	OnRunCompleted(RunCompletedHook)
}

// hub is the internal implementation of the Hub interface.
type hub struct {
	cfg   *config
	guard *runlock.Guard
	hooks *hooks
}

// New creates a Hub for one system pair.
func New(opts ...Option) (Hub, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &hub{
		cfg:   cfg,
		guard: runlock.New(),
		hooks: newHooks(),
	}, nil
}

// CreateManualMapping implements Hub.
func (h *hub) CreateManualMapping(ctx context.Context, sourceID, targetID string) (mappings.Mapping, error) {
	if sourceID == "" || targetID == "" {
		return mappings.Mapping{}, errors.NewValidationError("mapping", nil, "source and target ids are required")
	}

	if existing, err := h.cfg.mappingStore.GetBySource(ctx, sourceID); err == nil {
		return mappings.Mapping{}, errors.NewAlreadyMappedError(string(entities.SideSource), sourceID, existing.ID)
	} else if !errors.IsNotFound(err) {
		return mappings.Mapping{}, err
	}
	if existing, err := h.cfg.mappingStore.GetByTarget(ctx, targetID); err == nil {
		return mappings.Mapping{}, errors.NewAlreadyMappedError(string(entities.SideTarget), targetID, existing.ID)
	} else if !errors.IsNotFound(err) {
		return mappings.Mapping{}, err
	}

	sourceName, targetName := sourceID, targetID
	if e, err := h.cfg.sourceSnapshots.Get(ctx, sourceID); err == nil {
		sourceName = e.DisplayName
	}
	if e, err := h.cfg.targetSnapshots.Get(ctx, targetID); err == nil {
		targetName = e.DisplayName
	}

	m := mappings.New(sourceID, sourceName, targetID, targetName, mappings.MatchManual)
	if err := h.cfg.mappingStore.Upsert(ctx, m); err != nil {
		return mappings.Mapping{}, err
	}
	if err := h.save(ctx); err != nil {
		return mappings.Mapping{}, err
	}

	logging.FromContext(ctx).Info().
		Str("source_id", sourceID).
		Str("target_id", targetID).
		Msg("Manual mapping created")
	h.hooks.triggerMappingCreated(m)
	return m, nil
}

// DeleteMapping implements Hub.
func (h *hub) DeleteMapping(ctx context.Context, id string) error {
	if err := h.cfg.mappingStore.Delete(ctx, id); err != nil {
		return err
	}
	return h.save(ctx)
}

// Unmatched implements Hub.
func (h *hub) Unmatched(ctx context.Context) (*UnmatchedReport, error) {
	report := &UnmatchedReport{}

	sourceEntities, err := h.cfg.sourceSnapshots.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range sourceEntities {
		if _, err := h.cfg.mappingStore.GetBySource(ctx, e.ExternalID); errors.IsNotFound(err) {
			report.UnmatchedSource = append(report.UnmatchedSource, e.ExternalID)
		} else if err != nil {
			return nil, err
		}
	}

	targetEntities, err := h.cfg.targetSnapshots.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range targetEntities {
		if _, err := h.cfg.mappingStore.GetByTarget(ctx, e.ExternalID); errors.IsNotFound(err) {
			report.UnmatchedTarget = append(report.UnmatchedTarget, e.ExternalID)
		} else if err != nil {
			return nil, err
		}
	}

	return report, nil
}

// Overview implements Hub.
func (h *hub) Overview(ctx context.Context) (*Overview, error) {
	o := &Overview{ByMatchType: make(map[mappings.MatchType]int)}

	var err error
	if o.SourceEntities, err = h.cfg.sourceSnapshots.Len(ctx); err != nil {
		return nil, err
	}
	if o.TargetEntities, err = h.cfg.targetSnapshots.Len(ctx); err != nil {
		return nil, err
	}
	if o.HistoryRecords, err = h.cfg.historyLog.Len(ctx); err != nil {
		return nil, err
	}

	all, err := h.cfg.mappingStore.List(ctx, mappings.Filter{})
	if err != nil {
		return nil, err
	}
	o.Mappings = len(all)
	for _, m := range all {
		o.ByMatchType[m.MatchType]++
		if len(m.Conflicts) > 0 {
			o.Conflicted++
		}
	}

	unmatched, err := h.Unmatched(ctx)
	if err != nil {
		return nil, err
	}
	o.UnmatchedSource = len(unmatched.UnmatchedSource)
	o.UnmatchedTarget = len(unmatched.UnmatchedTarget)

	return o, nil
}

// PurgeHistory implements Hub.
func (h *hub) PurgeHistory(ctx context.Context) (int, error) {
	removed, err := h.cfg.historyLog.Purge(ctx, time.Now().UTC().Add(-h.cfg.retention))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		if err := h.save(ctx); err != nil {
			return removed, err
		}
		logging.FromContext(ctx).Info().
			Int("removed", removed).
			Dur("retention", h.cfg.retention).
			Msg("Change history purged")
	}
	return removed, nil
}

// OnMappingCreated implements Hub.
func (h *hub) OnMappingCreated(hook MappingCreatedHook) {
	h.hooks.onMappingCreated(hook)
}

// OnConflict implements Hub.
func (h *hub) OnConflict(hook ConflictHook) {
	h.hooks.onConflict(hook)
}

// OnRunCompleted implements Hub.
func (h *hub) OnRunCompleted(hook RunCompletedHook) {
	h.hooks.onRunCompleted(hook)
}

// save invokes the configured persister, if any.
func (h *hub) save(ctx context.Context) error {
	if h.cfg.persister == nil {
		return nil
	}
	return h.cfg.persister.Save(ctx)
}

// auditRecord builds the single per-run history entry.
func auditRecord(pair string, summary *Summary) history.Record {
	r := history.NewRecord("sync_run", pair, history.ChangeRunAudit)
	r.Snapshot = summary.Counts()
	return r
}
