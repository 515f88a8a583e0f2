package matching_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artificialadnaan/trocksynchubv3-sub001/internal/stores/memory"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/entities"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/matching"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/mappings"
)

func source(id, name string, fields map[string]string) entities.Entity {
	return entities.New("pm", id, name, fields)
}

func target(id, name string, fields map[string]string) entities.Entity {
	return entities.New("crm", id, name, fields)
}

func TestStickyLookupWinsOverEverything(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMappingStore()
	require.NoError(t, store.Upsert(ctx, mappings.New("p-1", "Acme", "c-9", "Totally Different", mappings.MatchFuzzy)))

	// The pool contains a perfect exact-key candidate, but the existing
	// mapping is reused unconditionally.
	pool := []entities.Entity{
		target("c-1", "Acme", map[string]string{entities.FieldNumber: "123"}),
		target("c-9", "Totally Different", nil),
	}
	src := source("p-1", "Acme Renamed Since", map[string]string{entities.FieldNumber: "123"})

	claims := matching.NewClaimSet()
	m, ok := matching.New().Match(ctx, src, pool, store, claims)
	require.True(t, ok)
	assert.Equal(t, "c-9", m.TargetID)
	assert.True(t, m.Sticky)
	assert.True(t, claims.Claimed("c-9"), "sticky target is claimed for the run")
}

func TestExactKeyOverridesNameMismatch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMappingStore()

	pool := []entities.Entity{
		target("c-1", "Acme Headquarters", map[string]string{entities.FieldNumber: "123"}),
	}
	src := source("p-1", "Acme HQ", map[string]string{entities.FieldNumber: "123"})

	m, ok := matching.New().Match(ctx, src, pool, store, matching.NewClaimSet())
	require.True(t, ok)
	assert.Equal(t, "c-1", m.TargetID)
	assert.Equal(t, mappings.MatchExactKey, m.Type)
}

func TestNormalizedNameMatch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMappingStore()

	pool := []entities.Entity{target("c-1", "  ACME   Corp ", nil)}
	src := source("p-1", "acme corp", nil)

	m, ok := matching.New().Match(ctx, src, pool, store, matching.NewClaimSet())
	require.True(t, ok)
	assert.Equal(t, mappings.MatchExactName, m.Type)
}

func TestCompositeScoreThresholdBoundary(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMappingStore()
	matcher := matching.New()

	// Email match scores 100: accepted.
	m, ok := matcher.Match(ctx,
		source("p-1", "Wholly Unrelated", map[string]string{entities.FieldEmail: "ops@acme.com"}),
		[]entities.Entity{target("c-1", "Acme Corp", map[string]string{entities.FieldEmail: "ops@acme.com"})},
		store, matching.NewClaimSet())
	require.True(t, ok)
	assert.Equal(t, mappings.MatchFuzzy, m.Type)
	assert.Equal(t, matching.ScoreEmail, m.Score)

	// Substring name overlap scores exactly 60: accepted.
	m, ok = matcher.Match(ctx,
		source("p-2", "Acme", nil),
		[]entities.Entity{target("c-2", "Acme Headquarters Berlin", nil)},
		store, matching.NewClaimSet())
	require.True(t, ok)
	assert.Equal(t, matching.Threshold, m.Score)

	// Person-in-freetext alone scores 40: rejected.
	_, ok = matcher.Match(ctx,
		source("p-3", "Fully Distinct GmbH", map[string]string{entities.FieldContactName: "Maria Lopez"}),
		[]entities.Entity{target("c-3", "Unrelated Ltd", map[string]string{entities.FieldNotes: "call maria lopez about renewal"})},
		store, matching.NewClaimSet())
	assert.False(t, ok, "score 40 is below the threshold")

	// Zero signals: unmatched.
	_, ok = matcher.Match(ctx,
		source("p-4", "Nothing In Common", nil),
		[]entities.Entity{target("c-4", "Else Entirely", nil)},
		store, matching.NewClaimSet())
	assert.False(t, ok)
}

func TestDomainAndLegalNameSignals(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMappingStore()
	matcher := matching.New()

	m, ok := matcher.Match(ctx,
		source("p-1", "Acme Projects", map[string]string{entities.FieldDomain: "acme.com"}),
		[]entities.Entity{target("c-1", "Completely Other", map[string]string{entities.FieldDomain: "ACME.com"})},
		store, matching.NewClaimSet())
	require.True(t, ok)
	assert.Equal(t, matching.ScoreDomain, m.Score)

	m, ok = matcher.Match(ctx,
		source("p-2", "Acme Neubau", map[string]string{entities.FieldLegalName: "Acme Holding GmbH"}),
		[]entities.Entity{target("c-2", "Acme Holding GmbH", nil)},
		store, matching.NewClaimSet())
	require.True(t, ok)
	assert.Equal(t, matching.ScoreLegalName, m.Score)
}

func TestClaimedTargetsAreRemovedFromPool(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMappingStore()
	matcher := matching.New()
	claims := matching.NewClaimSet()

	pool := []entities.Entity{target("c-1", "Acme Corp", nil)}

	first, ok := matcher.Match(ctx, source("p-1", "Acme Corp", nil), pool, store, claims)
	require.True(t, ok)
	assert.Equal(t, "c-1", first.TargetID)

	// Second source with the same name cannot double-claim c-1.
	_, ok = matcher.Match(ctx, source("p-2", "Acme Corp", nil), pool, store, claims)
	assert.False(t, ok)
}

func TestMappedTargetIsNotOfferedToOtherSources(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMappingStore()
	require.NoError(t, store.Upsert(ctx, mappings.New("p-b", "Beta Build", "c-x", "Beta Build", mappings.MatchExactName)))

	// p-a shares c-x's business key, but c-x already belongs to p-b's
	// stored mapping. p-a must stay unmatched instead of taking it.
	pool := []entities.Entity{target("c-x", "Beta Build", map[string]string{entities.FieldNumber: "777"})}
	src := source("p-a", "Alpha Annex", map[string]string{entities.FieldNumber: "777"})

	claims := matching.NewClaimSet()
	_, ok := matching.New().Match(ctx, src, pool, store, claims)
	assert.False(t, ok)
	assert.False(t, claims.Claimed("c-x"), "the bound target stays claimable by its own source")

	// The owning source still reaches c-x through the sticky lookup.
	m, ok := matching.New().Match(ctx, source("p-b", "Beta Build", nil), pool, store, claims)
	require.True(t, ok)
	assert.Equal(t, "c-x", m.TargetID)
	assert.True(t, m.Sticky)
}

func TestTieBreakIsDeterministic(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMappingStore()
	matcher := matching.New()

	// Both targets contain the source name: identical score 60. The
	// lexicographically first external ID wins, every time.
	pool := []entities.Entity{
		target("c-b", "Acme South Branch", nil),
		target("c-a", "Acme North Branch", nil),
	}
	for i := 0; i < 10; i++ {
		m, ok := matcher.Match(ctx, source("p-1", "Acme", nil), pool, store, matching.NewClaimSet())
		require.True(t, ok)
		assert.Equal(t, "c-a", m.TargetID)
	}
}

func TestMatchIsDeterministicAcrossPoolOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMappingStore()
	matcher := matching.New()

	a := target("c-a", "Acme North Branch", nil)
	b := target("c-b", "Acme South Branch", nil)

	m1, ok := matcher.Match(ctx, source("p-1", "Acme", nil), []entities.Entity{a, b}, store, matching.NewClaimSet())
	require.True(t, ok)
	m2, ok := matcher.Match(ctx, source("p-1", "Acme", nil), []entities.Entity{b, a}, store, matching.NewClaimSet())
	require.True(t, ok)

	assert.Equal(t, m1.TargetID, m2.TargetID)
}

func TestCustomKeyField(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMappingStore()
	matcher := matching.New(matching.WithKeyField("vat_id"))

	pool := []entities.Entity{target("c-1", "Other Name", map[string]string{"vat_id": "DE123"})}
	m, ok := matcher.Match(ctx, source("p-1", "Acme", map[string]string{"vat_id": "DE123"}), pool, store, matching.NewClaimSet())
	require.True(t, ok)
	assert.Equal(t, mappings.MatchExactKey, m.Type)
}
