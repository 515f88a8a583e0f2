package synchub

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/entities"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/history"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/logging"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/mappings"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/matching"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/remote"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/resolve"
)

// pairPlan is the staged outcome for one matched source entity. Nothing
// in a plan has touched a store or a remote system yet; commit applies
// it according to the run mode.
type pairPlan struct {
	source  entities.Entity
	target  entities.Entity
	match   matching.Match
	outcome resolve.Outcome
	mapping mappings.Mapping
	isNew   bool
	// prevConflicts are the conflicts stored before this run, kept so an
	// unchanged sticky pair does not count as updated.
	prevConflicts []mappings.FieldConflict
	detail        PairDetail
}

// createPlan is one unmatched source entity staged for counterpart
// creation.
type createPlan struct {
	source entities.Entity
	props  map[string]string
	detail PairDetail
}

// runPlan is everything one pass decided before committing anything.
type runPlan struct {
	pairs   []*pairPlan
	creates []*createPlan
}

// RunSync implements Hub.
func (h *hub) RunSync(ctx context.Context, mode Mode) (*Summary, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if err := h.guard.Acquire(h.cfg.pair); err != nil {
		return nil, err
	}
	defer h.guard.Release(h.cfg.pair)

	ctx = logging.WithRunID(logging.WithPair(ctx, h.cfg.pair), uuid.NewString())
	log := logging.FromContext(ctx)
	start := time.Now()
	summary := &Summary{Pair: h.cfg.pair, Mode: mode}
	log.Info().Str("mode", string(mode)).Msg("Sync run starting")

	sources, targets, err := h.extract(ctx, mode)
	if err != nil {
		// A failed extraction aborts the run, but the audit entry is
		// still written so the gap is visible in history.
		summary.Duration = time.Since(start)
		h.audit(ctx, mode, summary)
		log.Error().Err(err).Msg("Sync run aborted, extraction failed")
		return nil, err
	}

	plan := h.plan(ctx, sources, targets, summary)
	h.commit(ctx, mode, plan, summary)

	summary.Duration = time.Since(start)
	h.audit(ctx, mode, summary)
	h.hooks.triggerRunCompleted(summary)
	log.Info().Str("result", summary.String()).Msg("Sync run finished")
	return summary, nil
}

// extract lists both systems concurrently and converts their records to
// entity mirrors. Either side failing aborts the run; a half-extracted
// pass would report entities as unmatched that merely were not fetched.
// Persisting modes refresh the snapshot stores; dry-run works from the
// listed records alone.
func (h *hub) extract(ctx context.Context, mode Mode) ([]entities.Entity, []entities.Entity, error) {
	var sources, targets []entities.Entity

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		ctx = logging.WithSystem(ctx, h.cfg.sourceClient.SystemID())
		records, err := h.cfg.sourceClient.ListAll(ctx, h.cfg.sourceKind)
		if err != nil {
			return errors.NewRemoteReadError(h.cfg.sourceClient.SystemID(), string(h.cfg.sourceKind), err)
		}
		sources = toEntities(h.cfg.sourceClient.SystemID(), records)
		return nil
	})
	p.Go(func(ctx context.Context) error {
		ctx = logging.WithSystem(ctx, h.cfg.targetClient.SystemID())
		records, err := h.cfg.targetClient.ListAll(ctx, h.cfg.targetKind)
		if err != nil {
			return errors.NewRemoteReadError(h.cfg.targetClient.SystemID(), string(h.cfg.targetKind), err)
		}
		targets = toEntities(h.cfg.targetClient.SystemID(), records)
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}

	if mode.PersistsLocal() {
		for _, e := range sources {
			if err := h.cfg.sourceSnapshots.Upsert(ctx, e); err != nil {
				return nil, nil, err
			}
		}
		for _, e := range targets {
			if err := h.cfg.targetSnapshots.Upsert(ctx, e); err != nil {
				return nil, nil, err
			}
		}
	}

	logging.FromContext(ctx).Debug().
		Int("sources", len(sources)).
		Int("targets", len(targets)).
		Msg("Extraction complete")
	return sources, targets, nil
}

// plan matches every source entity and resolves field propagation for
// the matched pairs. Sources are walked in ExternalID order with a
// run-scoped claim set, so the pass is reproducible and no target is
// assigned twice.
func (h *hub) plan(ctx context.Context, sources, targets []entities.Entity, summary *Summary) *runPlan {
	log := logging.FromContext(ctx)
	plan := &runPlan{}
	claims := matching.NewClaimSet()

	targetsByID := make(map[string]entities.Entity, len(targets))
	for _, t := range targets {
		targetsByID[t.ExternalID] = t
	}

	sorted := make([]entities.Entity, len(sources))
	copy(sorted, sources)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ExternalID < sorted[j].ExternalID
	})

	for _, src := range sorted {
		staged := h.translateStage(src)

		match, ok := h.cfg.matcher.Match(ctx, staged, targets, h.cfg.mappingStore, claims)
		if !ok {
			detail := PairDetail{
				SourceID:   src.ExternalID,
				SourceName: src.DisplayName,
				Status:     PairUnmatched,
			}
			if h.cfg.createOnUnmatched {
				props := h.cfg.resolver.CreateProperties(staged)
				if props[entities.FieldStage] == "" {
					props[entities.FieldStage] = h.cfg.translator.DefaultStage()
				}
				plan.creates = append(plan.creates, &createPlan{source: staged, props: props, detail: detail})
				summary.CreatesStaged++
			} else {
				summary.UnmatchedSource++
				summary.Details = append(summary.Details, detail)
			}
			continue
		}
		summary.Matched++

		pp := &pairPlan{source: staged, match: match}
		pp.target, pp.outcome = h.resolvePair(ctx, staged, match, targetsByID)

		if match.Sticky {
			existing, err := h.cfg.mappingStore.GetBySource(ctx, src.ExternalID)
			if err != nil {
				log.Warn().Err(err).Str("source_id", src.ExternalID).Msg("Sticky mapping vanished mid-run, recreating")
				pp.mapping = mappings.New(src.ExternalID, src.DisplayName, match.TargetID, match.TargetName, match.Type)
				pp.isNew = true
			} else {
				pp.prevConflicts = existing.Conflicts
				existing.SourceName = src.DisplayName
				if pp.target.DisplayName != "" {
					existing.TargetName = pp.target.DisplayName
				}
				pp.mapping = existing
			}
		} else {
			pp.mapping = mappings.New(src.ExternalID, src.DisplayName, match.TargetID, match.TargetName, match.Type)
			pp.isNew = true
		}

		if pp.outcome.HasWrites() {
			summary.WritesStaged++
		}
		summary.Conflicts += len(pp.outcome.Conflicts)

		pp.detail = PairDetail{
			SourceID:     src.ExternalID,
			SourceName:   src.DisplayName,
			TargetID:     match.TargetID,
			TargetName:   pp.mapping.TargetName,
			MatchType:    pp.mapping.MatchType,
			Score:        match.Score,
			Sticky:       match.Sticky,
			Status:       PairMatched,
			StagedWrites: pp.outcome.Writes,
			Conflicts:    pp.outcome.Conflicts,
		}
		plan.pairs = append(plan.pairs, pp)
	}

	// Targets nobody claimed and no mapping knows about are reported,
	// never written to: creation only runs source to target.
	for _, t := range targets {
		if claims.Claimed(t.ExternalID) {
			continue
		}
		if _, err := h.cfg.mappingStore.GetByTarget(ctx, t.ExternalID); errors.IsNotFound(err) {
			summary.UnmatchedTarget++
		}
	}

	return plan
}

// resolvePair finds the target entity for a match and stages field
// propagation. A sticky target absent from this extraction stages
// nothing; its fields are stale and overwriting from stale data is worse
// than waiting a run.
func (h *hub) resolvePair(ctx context.Context, source entities.Entity, match matching.Match, targetsByID map[string]entities.Entity) (entities.Entity, resolve.Outcome) {
	target, ok := targetsByID[match.TargetID]
	if !ok {
		if e, err := h.cfg.targetSnapshots.Get(ctx, match.TargetID); err == nil {
			target = e
		} else {
			logging.FromContext(ctx).Warn().
				Str("source_id", source.ExternalID).
				Str("target_id", match.TargetID).
				Msg("Mapped target missing from extraction, skipping writes this run")
			return entities.Entity{}, resolve.Outcome{}
		}
	}
	return target, h.cfg.resolver.Resolve(source, target)
}

// commit applies the plan according to the mode: remote writes and
// creates only in write mode, mapping and history persistence in every
// mode that persists local state, nothing at all in dry-run beyond the
// summary.
func (h *hub) commit(ctx context.Context, mode Mode, plan *runPlan, summary *Summary) {
	log := logging.FromContext(ctx)

	var failed map[string]bool
	if mode.WritesRemote() {
		updates := make([]remote.Update, 0, len(plan.pairs))
		for _, pp := range plan.pairs {
			if pp.outcome.HasWrites() {
				updates = append(updates, remote.Update{ID: pp.match.TargetID, Properties: pp.outcome.Writes})
			}
		}
		report := h.cfg.writer.Write(ctx, h.cfg.targetClient, h.cfg.targetKind, updates)
		summary.WritesSucceeded = report.Succeeded
		summary.WritesFailed = report.Failed
		summary.WriteErrors = report.Errs()
		failed = report.FailedIDSet()
	}

	for _, pp := range plan.pairs {
		status := mappings.StatusSynced
		if len(pp.outcome.Conflicts) > 0 {
			status = mappings.StatusConflicted
		}
		wrote := false
		if mode.WritesRemote() && pp.outcome.HasWrites() {
			if failed[pp.match.TargetID] {
				status = mappings.StatusWriteFailed
			} else {
				wrote = true
			}
		}

		if !mode.PersistsLocal() {
			if pp.isNew {
				summary.NewMappings++
			} else if pp.outcome.HasWrites() || !conflictsEqual(pp.prevConflicts, pp.outcome.Conflicts) {
				summary.UpdatedMappings++
			}
			summary.Details = append(summary.Details, pp.detail)
			continue
		}

		m := pp.mapping
		m.Touch(status, pp.outcome.Conflicts)
		if err := h.cfg.mappingStore.Upsert(ctx, m); err != nil {
			log.Error().Err(err).Str("source_id", m.SourceID).Msg("Mapping upsert failed")
			continue
		}

		if pp.isNew {
			summary.NewMappings++
			h.hooks.triggerMappingCreated(m)
		} else if pp.outcome.HasWrites() || !conflictsEqual(pp.prevConflicts, pp.outcome.Conflicts) {
			summary.UpdatedMappings++
		}
		for _, c := range pp.outcome.Conflicts {
			h.hooks.triggerConflict(m.ID, c)
		}

		if wrote {
			for field, newValue := range pp.outcome.Writes {
				rec := history.FieldUpdate(string(h.cfg.targetKind), pp.match.TargetID, field, pp.target.Field(field), newValue)
				if err := h.cfg.historyLog.Append(ctx, rec); err != nil {
					log.Error().Err(err).Str("field", field).Msg("History append failed")
				}
			}
		}
		summary.Details = append(summary.Details, pp.detail)
	}

	h.commitCreates(ctx, mode, plan.creates, summary)
}

// commitCreates performs the staged counterpart creations. Each create
// is independent: one failing never blocks the rest.
func (h *hub) commitCreates(ctx context.Context, mode Mode, creates []*createPlan, summary *Summary) {
	log := logging.FromContext(ctx)

	for _, cp := range creates {
		if !mode.WritesRemote() {
			summary.UnmatchedSource++
			summary.Details = append(summary.Details, cp.detail)
			continue
		}

		targetID, err := h.createWithRetry(ctx, cp.props)
		if err != nil {
			log.Warn().Err(err).Str("source_id", cp.source.ExternalID).Msg("Counterpart create abandoned")
			summary.CreatesSkipped++
			summary.UnmatchedSource++
			cp.detail.Status = PairSkipped
			summary.Details = append(summary.Details, cp.detail)
			continue
		}
		summary.CreatesSucceeded++

		// The remote record exists from here on. Record it locally even
		// when the mapping upsert below fails.
		if err := h.cfg.targetSnapshots.Upsert(ctx, newCounterpart(h.cfg.targetClient.SystemID(), targetID, cp.props)); err != nil {
			log.Error().Err(err).Str("target_id", targetID).Msg("Snapshot refresh failed after create")
		}
		if err := h.cfg.historyLog.Append(ctx, history.Created(string(h.cfg.targetKind), targetID, cp.props)); err != nil {
			log.Error().Err(err).Str("target_id", targetID).Msg("History append failed")
		}

		m := mappings.New(cp.source.ExternalID, cp.source.DisplayName, targetID, cp.props["name"], mappings.MatchCreated)
		if err := h.cfg.mappingStore.Upsert(ctx, m); err != nil {
			log.Error().Err(err).Str("source_id", cp.source.ExternalID).Msg("Mapping upsert failed after create")
			cp.detail.Status = PairSkipped
			cp.detail.TargetID = targetID
			cp.detail.TargetName = cp.props["name"]
			summary.Details = append(summary.Details, cp.detail)
			continue
		}
		summary.NewMappings++
		h.hooks.triggerMappingCreated(m)

		cp.detail.Status = PairCreated
		cp.detail.TargetID = targetID
		cp.detail.TargetName = cp.props["name"]
		cp.detail.MatchType = mappings.MatchCreated
		summary.Details = append(summary.Details, cp.detail)
	}
}

// createWithRetry creates one counterpart record, retrying exactly once
// without the offending field when the target rejects a unique
// constraint. A second failure is final for this run.
func (h *hub) createWithRetry(ctx context.Context, props map[string]string) (string, error) {
	id, err := h.cfg.targetClient.CreateRecord(ctx, h.cfg.targetKind, props)
	if err == nil {
		return id, nil
	}
	field := errors.UniqueConstraintField(err)
	if field == "" {
		return "", err
	}

	logging.FromContext(ctx).Warn().
		Str("field", field).
		Msg("Create hit unique constraint, retrying without the field")
	retry := make(map[string]string, len(props))
	for k, v := range props {
		if k != field {
			retry[k] = v
		}
	}
	return h.cfg.targetClient.CreateRecord(ctx, h.cfg.targetKind, retry)
}

// audit writes the single per-run history entry and saves local state.
// Dry-run keeps the counts in the log stream only.
func (h *hub) audit(ctx context.Context, mode Mode, summary *Summary) {
	log := logging.FromContext(ctx)
	if !mode.PersistsLocal() {
		log.Info().Fields(map[string]interface{}{"counts": summary.Counts()}).Msg("Dry run audit")
		return
	}
	if err := h.cfg.historyLog.Append(ctx, auditRecord(h.cfg.pair, summary)); err != nil {
		log.Error().Err(err).Msg("Audit record append failed")
	}
	if err := h.save(ctx); err != nil {
		log.Error().Err(err).Msg("State save failed")
	}
}

// CreateForSource implements Hub.
func (h *hub) CreateForSource(ctx context.Context, sourceID string) (mappings.Mapping, error) {
	if sourceID == "" {
		return mappings.Mapping{}, errors.NewValidationError("source_id", sourceID, "source id is required")
	}
	if err := h.guard.Acquire(h.cfg.pair); err != nil {
		return mappings.Mapping{}, err
	}
	defer h.guard.Release(h.cfg.pair)

	ctx = logging.WithEntity(logging.WithPair(ctx, h.cfg.pair), sourceID)

	// Retriggering for an already-linked entity reuses the mapping.
	if existing, err := h.cfg.mappingStore.GetBySource(ctx, sourceID); err == nil {
		return existing, nil
	} else if !errors.IsNotFound(err) {
		return mappings.Mapping{}, err
	}

	src, err := h.cfg.sourceSnapshots.Get(ctx, sourceID)
	if err != nil {
		return mappings.Mapping{}, err
	}

	staged := h.translateStage(src)
	props := h.cfg.resolver.CreateProperties(staged)
	if props[entities.FieldStage] == "" {
		props[entities.FieldStage] = h.cfg.translator.DefaultStage()
	}

	targetID, err := h.createWithRetry(ctx, props)
	if err != nil {
		return mappings.Mapping{}, err
	}

	m := mappings.New(sourceID, src.DisplayName, targetID, props["name"], mappings.MatchCreated)
	if err := h.cfg.mappingStore.Upsert(ctx, m); err != nil {
		return mappings.Mapping{}, err
	}
	if err := h.cfg.targetSnapshots.Upsert(ctx, newCounterpart(h.cfg.targetClient.SystemID(), targetID, props)); err != nil {
		return m, err
	}
	if err := h.cfg.historyLog.Append(ctx, history.Created(string(h.cfg.targetKind), targetID, props)); err != nil {
		return m, err
	}
	if err := h.save(ctx); err != nil {
		return m, err
	}

	logging.FromContext(ctx).Info().
		Str("source_id", sourceID).
		Str("target_id", targetID).
		Msg("Counterpart created on trigger")
	h.hooks.triggerMappingCreated(m)
	return m, nil
}

// translateStage returns a copy of the entity with its stage field
// mapped into the target vocabulary, so resolution and creation compare
// like with like. Entities without a stage pass through untouched.
func (h *hub) translateStage(src entities.Entity) entities.Entity {
	stage := src.Field(entities.FieldStage)
	if stage == "" {
		return src
	}
	out := src.Copy()
	out.IdentifyingFields[entities.FieldStage] = h.cfg.translator.Translate(stage)
	return out
}

// toEntities converts listed remote records into entity mirrors.
func toEntities(systemID string, records []remote.Record) []entities.Entity {
	out := make([]entities.Entity, 0, len(records))
	for _, r := range records {
		out = append(out, entities.New(systemID, r.ID, r.Name, r.Properties))
	}
	return out
}

// newCounterpart builds the mirror entry for a counterpart this run just
// created, so the new record is visible before the next extraction.
func newCounterpart(systemID, targetID string, props map[string]string) entities.Entity {
	fields := make(map[string]string, len(props))
	for k, v := range props {
		if k != "name" {
			fields[k] = v
		}
	}
	return entities.New(systemID, targetID, props["name"], fields)
}

// conflictsEqual reports whether two conflict lists carry the same
// field-level differences, ignoring order.
func conflictsEqual(a, b []mappings.FieldConflict) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[mappings.FieldConflict]bool, len(a))
	for _, c := range a {
		seen[c] = true
	}
	for _, c := range b {
		if !seen[c] {
			return false
		}
	}
	return true
}
