package synchub_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	synchub "github.com/artificialadnaan/trocksynchubv3-sub001"
	"github.com/artificialadnaan/trocksynchubv3-sub001/internal/stores/memory"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/batch"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/history"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/logging"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/mappings"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/remote"
)

const (
	sourceKind remote.EntityKind = "project"
	targetKind remote.EntityKind = "company"
)

func projects(recs ...remote.Record) map[remote.EntityKind][]remote.Record {
	return map[remote.EntityKind][]remote.Record{sourceKind: recs}
}

func companies(recs ...remote.Record) map[remote.EntityKind][]remote.Record {
	return map[remote.EntityKind][]remote.Record{targetKind: recs}
}

func rec(id, name string, props map[string]string) remote.Record {
	if props == nil {
		props = map[string]string{}
	}
	return remote.Record{ID: id, Name: name, Properties: props}
}

// testContext carries the nop logger so run output stays out of test logs.
func testContext() context.Context {
	return logging.WithLogger(context.Background(), &logging.Nop)
}

func newHub(t *testing.T, source, target *remote.FakeClient, opts ...synchub.Option) synchub.Hub {
	t.Helper()
	h, err := synchub.New(append([]synchub.Option{synchub.WithClients(source, target)}, opts...)...)
	require.NoError(t, err)
	return h
}

func TestWriteRunEndToEnd(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Acme Builders", map[string]string{"number": "J-100", "email": "ops@acme.com"}),
		rec("p2", "Blue Harbor Cafe", nil),
		rec("p3", "Orphan Project", nil),
	))
	crm := remote.NewFakeClient("crm", companies(
		rec("c1", "Acme Industrial", map[string]string{"number": "J-100"}),
		rec("c2", "blue harbor cafe", nil),
		rec("c3", "Lonely Corp", nil),
	))
	ms := memory.NewMappingStore()
	hl := memory.NewHistoryLog()
	h := newHub(t, pm, crm, synchub.WithMappingStore(ms), synchub.WithHistoryLog(hl))

	summary, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Matched)
	assert.Equal(t, 2, summary.NewMappings)
	assert.Equal(t, 0, summary.UpdatedMappings)
	assert.Equal(t, 1, summary.WritesStaged)
	assert.Equal(t, 1, summary.WritesSucceeded)
	assert.Equal(t, 0, summary.WritesFailed)
	assert.Equal(t, 1, summary.UnmatchedSource)
	assert.Equal(t, 1, summary.UnmatchedTarget)
	assert.True(t, summary.HasChanges())

	m1, err := ms.GetBySource(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "c1", m1.TargetID)
	assert.Equal(t, mappings.MatchExactKey, m1.MatchType)
	assert.Equal(t, mappings.StatusSynced, m1.LastSyncStatus)

	m2, err := ms.GetBySource(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "c2", m2.TargetID)
	assert.Equal(t, mappings.MatchExactName, m2.MatchType)

	assert.Contains(t, crm.UpdatedIDs(), "c1")

	recs, err := hl.List(ctx, 0)
	require.NoError(t, err)
	byType := map[history.ChangeType]int{}
	for _, r := range recs {
		byType[r.ChangeType]++
	}
	assert.Equal(t, 1, byType[history.ChangeFieldUpdate])
	assert.Equal(t, 1, byType[history.ChangeRunAudit])

	o, err := h.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, o.SourceEntities)
	assert.Equal(t, 3, o.TargetEntities)
	assert.Equal(t, 2, o.Mappings)
	assert.Equal(t, 1, o.UnmatchedSource)
	assert.Equal(t, 1, o.UnmatchedTarget)
}

func TestSecondWriteRunIsIdempotent(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Acme Builders", map[string]string{"number": "J-100", "email": "ops@acme.com"}),
		rec("p2", "Blue Harbor Cafe", nil),
	))
	crm := remote.NewFakeClient("crm", companies(
		rec("c1", "Acme Industrial", map[string]string{"number": "J-100"}),
		rec("c2", "blue harbor cafe", nil),
	))
	h := newHub(t, pm, crm)

	first, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	require.Equal(t, 2, first.NewMappings)
	require.Equal(t, 1, first.WritesSucceeded)

	second, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Matched)
	assert.Equal(t, 0, second.NewMappings)
	assert.Equal(t, 0, second.UpdatedMappings)
	assert.Equal(t, 0, second.WritesStaged)
	assert.False(t, second.HasChanges())
}

func TestDryRunCommitsNothing(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Acme Builders", map[string]string{"number": "J-100", "email": "ops@acme.com"}),
	))
	crm := remote.NewFakeClient("crm", companies(
		rec("c1", "Acme Industrial", map[string]string{"number": "J-100"}),
	))
	h := newHub(t, pm, crm)

	summary, err := h.RunSync(ctx, synchub.ModeDryRun)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.NewMappings)
	assert.Equal(t, 1, summary.WritesStaged)
	assert.Equal(t, 0, summary.WritesSucceeded)

	assert.Empty(t, crm.BatchCalls)
	assert.Empty(t, crm.Creates)

	o, err := h.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, o.SourceEntities)
	assert.Equal(t, 0, o.TargetEntities)
	assert.Equal(t, 0, o.Mappings)
	assert.Equal(t, 0, o.HistoryRecords)
}

func TestReadOnlyPersistsLocalStateOnly(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Acme Builders", map[string]string{"number": "J-100", "email": "ops@acme.com"}),
	))
	crm := remote.NewFakeClient("crm", companies(
		rec("c1", "Acme Industrial", map[string]string{"number": "J-100"}),
	))
	hl := memory.NewHistoryLog()
	h := newHub(t, pm, crm, synchub.WithHistoryLog(hl))

	summary, err := h.RunSync(ctx, synchub.ModeReadOnly)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.NewMappings)
	assert.Equal(t, 1, summary.WritesStaged)
	assert.Equal(t, 0, summary.WritesSucceeded)
	assert.Empty(t, crm.BatchCalls)

	o, err := h.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, o.Mappings)
	assert.Equal(t, 1, o.SourceEntities)

	recs, err := hl.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, history.ChangeRunAudit, recs[0].ChangeType)
}

func TestStickyMappingWinsOverExactKey(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Acme Builders", map[string]string{"number": "J-100"}),
	))
	crm := remote.NewFakeClient("crm", companies(
		rec("c1", "Acme Industrial", map[string]string{"number": "J-100"}),
		rec("c3", "Misfiled Corp", nil),
	))
	ms := memory.NewMappingStore()
	h := newHub(t, pm, crm, synchub.WithMappingStore(ms))

	_, err := h.CreateManualMapping(ctx, "p1", "c3")
	require.NoError(t, err)

	summary, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 0, summary.NewMappings)

	m, err := ms.GetBySource(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "c3", m.TargetID)
	assert.Equal(t, mappings.MatchManual, m.MatchType)
}

func TestMappedTargetIsNotWritableByAnotherSource(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Alpha Annex", map[string]string{"number": "J-100", "email": "alpha@acme.com"}),
		rec("p2", "Beta Build", nil),
	))
	crm := remote.NewFakeClient("crm", companies(
		rec("c1", "Beta Build", map[string]string{"number": "J-100"}),
	))
	ms := memory.NewMappingStore()
	h := newHub(t, pm, crm, synchub.WithMappingStore(ms))

	// c1 already belongs to p2. p1 shares c1's business key and sorts
	// first, but it must not reach c1 or write onto it.
	_, err := h.CreateManualMapping(ctx, "p2", "c1")
	require.NoError(t, err)

	summary, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.UnmatchedSource)
	assert.Equal(t, 0, summary.WritesStaged)
	assert.Empty(t, crm.UpdatedIDs())

	_, err = ms.GetBySource(ctx, "p1")
	assert.True(t, errors.IsNotFound(err))

	m, err := ms.GetBySource(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "c1", m.TargetID)
}

func TestConflictPoliciesStageAndLog(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Acme", map[string]string{
			"number":     "J-1",
			"email":      "new@acme.com",
			"amount":     "5000",
			"legal_name": "Acme LLC",
		}),
	))
	crm := remote.NewFakeClient("crm", companies(
		rec("c1", "Acme", map[string]string{
			"number":     "J-1",
			"email":      "old@acme.com",
			"amount":     "7000",
			"legal_name": "Acme Holdings LLC",
		}),
	))
	ms := memory.NewMappingStore()
	hl := memory.NewHistoryLog()
	h := newHub(t, pm, crm, synchub.WithMappingStore(ms), synchub.WithHistoryLog(hl))

	var hookConflicts []mappings.FieldConflict
	h.OnConflict(func(_ string, c mappings.FieldConflict) {
		hookConflicts = append(hookConflicts, c)
	})

	summary, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Conflicts)
	assert.Equal(t, 1, summary.WritesStaged)
	assert.Equal(t, 1, summary.WritesSucceeded)
	assert.Len(t, hookConflicts, 3)

	m, err := ms.GetBySource(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, mappings.StatusConflicted, m.LastSyncStatus)
	require.Len(t, m.Conflicts, 3)
	resolutions := map[string]mappings.Resolution{}
	for _, c := range m.Conflicts {
		resolutions[c.Field] = c.Resolution
	}
	assert.Equal(t, mappings.SourceWins, resolutions["email"])
	assert.Equal(t, mappings.KeptBoth, resolutions["amount"])
	assert.Equal(t, mappings.TargetPreserved, resolutions["legal_name"])

	// Only the source-wins field propagates.
	require.Len(t, crm.BatchCalls, 1)
	require.Len(t, crm.BatchCalls[0], 1)
	props := crm.BatchCalls[0][0].Properties
	assert.Equal(t, "new@acme.com", props["email"])
	assert.NotContains(t, props, "amount")
	assert.NotContains(t, props, "legal_name")

	recs, err := hl.List(ctx, 0)
	require.NoError(t, err)
	var updates []history.Record
	for _, r := range recs {
		if r.ChangeType == history.ChangeFieldUpdate {
			updates = append(updates, r)
		}
	}
	require.Len(t, updates, 1)
	assert.Equal(t, "email", updates[0].Field)
	assert.Equal(t, "old@acme.com", updates[0].OldValue)
	assert.Equal(t, "new@acme.com", updates[0].NewValue)
}

func TestStageTranslationPropagates(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Acme", map[string]string{"number": "J-1", "stage": "confirmed"}),
	))
	crm := remote.NewFakeClient("crm", companies(
		rec("c1", "Acme", map[string]string{"number": "J-1"}),
	))
	h := newHub(t, pm, crm)

	_, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)

	require.Len(t, crm.BatchCalls, 1)
	assert.Equal(t, "closed_won", crm.BatchCalls[0][0].Properties["stage"])
}

func TestUnmatchedSourceGetsCounterpart(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Fresh Venture", map[string]string{"email": "f@v.com", "stage": "confirmed"}),
		rec("p2", "No Stage Yet", nil),
	))
	crm := remote.NewFakeClient("crm", nil)
	ms := memory.NewMappingStore()
	h := newHub(t, pm, crm, synchub.WithMappingStore(ms), synchub.WithCreateOnUnmatched(true))

	var created []mappings.Mapping
	h.OnMappingCreated(func(m mappings.Mapping) { created = append(created, m) })

	summary, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.CreatesStaged)
	assert.Equal(t, 2, summary.CreatesSucceeded)
	assert.Equal(t, 2, summary.NewMappings)
	assert.Equal(t, 0, summary.UnmatchedSource)
	assert.Len(t, created, 2)

	require.Len(t, crm.Creates, 2)
	assert.Equal(t, "Fresh Venture", crm.Creates[0]["name"])
	assert.Equal(t, "closed_won", crm.Creates[0]["stage"])
	assert.Equal(t, "lead", crm.Creates[1]["stage"])

	m, err := ms.GetBySource(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, mappings.MatchCreated, m.MatchType)

	// The created counterpart is sticky on the next pass.
	second, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Matched)
	assert.Equal(t, 0, second.CreatesStaged)
	assert.Len(t, crm.Creates, 2)
}

func TestCreateRetriesOnceWithoutUniqueField(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Acme", map[string]string{"domain": "acme.com"}),
	))
	crm := remote.NewFakeClient("crm", nil)
	crm.CreateErrOnce = errors.NewUniqueConstraintError("crm", "domain", "acme.com", nil)
	h := newHub(t, pm, crm, synchub.WithCreateOnUnmatched(true))

	summary, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CreatesSucceeded)
	assert.Equal(t, 0, summary.CreatesSkipped)

	require.Len(t, crm.Creates, 1)
	assert.NotContains(t, crm.Creates[0], "domain")
	assert.Equal(t, "Acme", crm.Creates[0]["name"])
}

func TestCreateSkippedWhenRetryFails(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Acme", nil),
	))
	crm := remote.NewFakeClient("crm", nil)
	crm.CreateErr = fmt.Errorf("api down")
	ms := memory.NewMappingStore()
	h := newHub(t, pm, crm, synchub.WithMappingStore(ms), synchub.WithCreateOnUnmatched(true))

	summary, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CreatesStaged)
	assert.Equal(t, 0, summary.CreatesSucceeded)
	assert.Equal(t, 1, summary.CreatesSkipped)
	assert.Equal(t, 1, summary.UnmatchedSource)

	n, err := ms.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var skipped bool
	for _, d := range summary.Details {
		if d.SourceID == "p1" && d.Status == synchub.PairSkipped {
			skipped = true
		}
	}
	assert.True(t, skipped)
}

func TestCreateRecordedWhenMappingUpsertFails(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Acme", nil),
	))
	crm := remote.NewFakeClient("crm", nil)
	ms := memory.NewMappingStore()
	hl := memory.NewHistoryLog()
	h := newHub(t, pm, crm, synchub.WithMappingStore(ms), synchub.WithHistoryLog(hl), synchub.WithCreateOnUnmatched(true))

	// Claim the ID the fake will assign so the mapping upsert after the
	// create is rejected. The remote record must still be accounted for.
	require.NoError(t, ms.Upsert(ctx, mappings.New("p-other", "Other", "crm-new-1", "Other", mappings.MatchManual)))

	summary, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CreatesSucceeded)
	assert.Equal(t, 0, summary.NewMappings)

	_, err = ms.GetBySource(ctx, "p1")
	assert.True(t, errors.IsNotFound(err))

	var detail synchub.PairDetail
	for _, d := range summary.Details {
		if d.SourceID == "p1" {
			detail = d
		}
	}
	assert.Equal(t, synchub.PairSkipped, detail.Status)
	assert.Equal(t, "crm-new-1", detail.TargetID)

	recs, err := hl.List(ctx, 0)
	require.NoError(t, err)
	var created bool
	for _, r := range recs {
		if r.ChangeType == history.ChangeCreated && r.EntityID == "crm-new-1" {
			created = true
		}
	}
	assert.True(t, created, "the created remote record is in the history log")
}

func TestConcurrentRunRejected(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(rec("p1", "Acme", nil)))
	crm := remote.NewFakeClient("crm", nil)
	h := newHub(t, pm, crm)

	// The completion hook fires while the run still holds the guard.
	var reentrant error
	h.OnRunCompleted(func(_ *synchub.Summary) {
		_, reentrant = h.RunSync(ctx, synchub.ModeDryRun)
	})

	_, err := h.RunSync(ctx, synchub.ModeDryRun)
	require.NoError(t, err)
	assert.True(t, errors.IsConcurrentRun(reentrant))

	// The guard releases once the run returns.
	_, err = h.RunSync(ctx, synchub.ModeDryRun)
	assert.NoError(t, err)
}

func TestBatchPartialFailureMarksMappings(t *testing.T) {
	ctx := testContext()
	var srcRecs, tgtRecs []remote.Record
	for i := 1; i <= 5; i++ {
		num := fmt.Sprintf("J-%d", i)
		srcRecs = append(srcRecs, rec(fmt.Sprintf("p%d", i), fmt.Sprintf("Project %d", i),
			map[string]string{"number": num, "email": fmt.Sprintf("p%d@x.com", i)}))
		tgtRecs = append(tgtRecs, rec(fmt.Sprintf("c%d", i), fmt.Sprintf("Company %d", i),
			map[string]string{"number": num}))
	}
	pm := remote.NewFakeClient("pm", projects(srcRecs...))
	crm := remote.NewFakeClient("crm", companies(tgtRecs...))
	crm.FailBatches = map[int]error{1: fmt.Errorf("rate limited")}
	ms := memory.NewMappingStore()
	h := newHub(t, pm, crm,
		synchub.WithMappingStore(ms),
		synchub.WithBatchWriter(batch.New(batch.WithSize(2), batch.WithConcurrency(1))))

	summary, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.WritesStaged)
	assert.Equal(t, 3, summary.WritesSucceeded)
	assert.Equal(t, 2, summary.WritesFailed)
	require.Len(t, summary.WriteErrors, 1)
	assert.True(t, errors.IsRemoteWrite(summary.WriteErrors[0]))

	m3, err := ms.GetBySource(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, mappings.StatusWriteFailed, m3.LastSyncStatus)
	m1, err := ms.GetBySource(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, mappings.StatusSynced, m1.LastSyncStatus)

	// The next run restages only the failed items.
	crm.FailBatches = nil
	second, err := h.RunSync(ctx, synchub.ModeWrite)
	require.NoError(t, err)
	assert.Equal(t, 2, second.WritesStaged)
	assert.Equal(t, 2, second.WritesSucceeded)

	m3, err = ms.GetBySource(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, mappings.StatusSynced, m3.LastSyncStatus)
}

func TestCreateForSourceTrigger(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", projects(
		rec("p1", "Acme", map[string]string{"stage": "in_progress"}),
	))
	crm := remote.NewFakeClient("crm", nil)
	h := newHub(t, pm, crm)

	// Mirror the source side first; the trigger path reads the snapshot.
	_, err := h.RunSync(ctx, synchub.ModeReadOnly)
	require.NoError(t, err)

	m, err := h.CreateForSource(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, mappings.MatchCreated, m.MatchType)
	require.Len(t, crm.Creates, 1)
	assert.Equal(t, "closed_won", crm.Creates[0]["stage"])

	// Retriggering reuses the mapping.
	again, err := h.CreateForSource(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID)
	assert.Len(t, crm.Creates, 1)
}

func TestCreateForSourceUnknownEntity(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", nil)
	crm := remote.NewFakeClient("crm", nil)
	h := newHub(t, pm, crm)

	_, err := h.CreateForSource(ctx, "ghost")
	assert.True(t, errors.IsNotFound(err))
}

func TestManualMappingLifecycle(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", nil)
	crm := remote.NewFakeClient("crm", nil)
	h := newHub(t, pm, crm)

	m, err := h.CreateManualMapping(ctx, "p1", "c1")
	require.NoError(t, err)

	_, err = h.CreateManualMapping(ctx, "p1", "c2")
	assert.True(t, errors.IsAlreadyMapped(err))
	_, err = h.CreateManualMapping(ctx, "p2", "c1")
	assert.True(t, errors.IsAlreadyMapped(err))

	require.NoError(t, h.DeleteMapping(ctx, m.ID))
	_, err = h.CreateManualMapping(ctx, "p2", "c1")
	assert.NoError(t, err)
}

func TestExtractionFailureAbortsRun(t *testing.T) {
	ctx := testContext()
	pm := remote.NewFakeClient("pm", nil)
	pm.ListErr = fmt.Errorf("api down")
	crm := remote.NewFakeClient("crm", nil)
	hl := memory.NewHistoryLog()
	h := newHub(t, pm, crm, synchub.WithHistoryLog(hl))

	summary, err := h.RunSync(ctx, synchub.ModeReadOnly)
	assert.Nil(t, summary)
	assert.True(t, errors.IsRemoteRead(err))

	// The aborted run still leaves its audit entry, and the guard is
	// released for the next attempt.
	recs, lerr := hl.List(ctx, 0)
	require.NoError(t, lerr)
	require.Len(t, recs, 1)
	assert.Equal(t, history.ChangeRunAudit, recs[0].ChangeType)

	pm.ListErr = nil
	_, err = h.RunSync(ctx, synchub.ModeReadOnly)
	assert.NoError(t, err)
}

func TestInvalidModeRejected(t *testing.T) {
	pm := remote.NewFakeClient("pm", nil)
	crm := remote.NewFakeClient("crm", nil)
	h := newHub(t, pm, crm)

	_, err := h.RunSync(testContext(), synchub.Mode("banana"))
	assert.True(t, errors.IsValidationError(err))
}

func TestPurgeHistoryHonorsRetention(t *testing.T) {
	ctx := testContext()
	hl := memory.NewHistoryLog()
	old := history.NewRecord("company", "c1", history.ChangeFieldUpdate)
	old.SyncedAt = utc.Time{Time: time.Now().UTC().Add(-15 * 24 * time.Hour)}
	require.NoError(t, hl.Append(ctx, old))
	fresh := history.NewRecord("company", "c2", history.ChangeFieldUpdate)
	require.NoError(t, hl.Append(ctx, fresh))

	pm := remote.NewFakeClient("pm", nil)
	crm := remote.NewFakeClient("crm", nil)
	h := newHub(t, pm, crm, synchub.WithHistoryLog(hl))

	removed, err := h.PurgeHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	n, err := hl.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
