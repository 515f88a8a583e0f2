// Package matching selects the best target counterpart for each source
// entity using ordered strategies: sticky mapping reuse, exact business
// key, exact normalized name, then a weighted composite score. The first
// strategy that fires wins; strategies never stack.
package matching

import (
	"context"
	"sort"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/entities"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/logging"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/mappings"
)

// Match is the transient outcome of matching one source entity. It is
// never persisted; the orchestrator turns it into a Mapping.
type Match struct {
	TargetID   string
	TargetName string
	Type       mappings.MatchType
	Score      int
	// Sticky marks a reused mapping rather than a fresh decision.
	Sticky bool
}

// Matcher finds target counterparts for source entities.
type Matcher struct {
	keyField string
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithKeyField overrides which identifying field is the shared business
// key (default entities.FieldNumber).
func WithKeyField(field string) Option {
	return func(m *Matcher) {
		m.keyField = field
	}
}

// New creates a Matcher.
func New(opts ...Option) *Matcher {
	m := &Matcher{keyField: entities.FieldNumber}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match finds the counterpart for source among the not-yet-claimed pool.
// The claim set is run-scoped; a selected target is claimed immediately
// so later sources in the same pass cannot take it. Returns false when
// the source stays unmatched.
//
// Candidates are enumerated in ExternalID order, so a tie at the top
// composite score resolves to the lexicographically first target. That is
// not globally optimal assignment, but it is reproducible across runs,
// and stickiness makes the first decision permanent anyway.
func (m *Matcher) Match(ctx context.Context, source entities.Entity, pool []entities.Entity, store mappings.Store, claims *ClaimSet) (Match, bool) {
	log := logging.FromContext(ctx)

	// Strategy 1: sticky lookup. An existing mapping is reused
	// unconditionally, even if names have drifted since it was made.
	if existing, err := store.GetBySource(ctx, source.ExternalID); err == nil {
		claims.Claim(existing.TargetID)
		return Match{
			TargetID:   existing.TargetID,
			TargetName: existing.TargetName,
			Type:       existing.MatchType,
			Sticky:     true,
		}, true
	} else if !errors.IsNotFound(err) {
		log.Warn().Err(err).Str("source_id", source.ExternalID).Msg("Mapping lookup failed, falling back to scoring")
	}

	candidates := m.candidates(ctx, pool, store, claims)

	// Strategy 2: exact business key.
	if key := source.Field(m.keyField); key != "" {
		for _, target := range candidates {
			if target.Field(m.keyField) == key {
				return m.claim(claims, target, mappings.MatchExactKey, 0)
			}
		}
	}

	// Strategy 3: exact normalized name.
	if source.NormalizedNameKey != "" {
		for _, target := range candidates {
			if target.NormalizedNameKey == source.NormalizedNameKey {
				return m.claim(claims, target, mappings.MatchExactName, 0)
			}
		}
	}

	// Strategy 4: weighted composite score over remaining signals.
	best := -1
	var bestTarget entities.Entity
	for _, target := range candidates {
		if s := score(source, target); s > best {
			best = s
			bestTarget = target
		}
	}
	if best >= Threshold {
		log.Debug().
			Str("source_id", source.ExternalID).
			Str("target_id", bestTarget.ExternalID).
			Int("score", best).
			Msg("Composite score match")
		return m.claim(claims, bestTarget, mappings.MatchFuzzy, best)
	}

	return Match{}, false
}

// claim marks the target taken and builds the match.
func (m *Matcher) claim(claims *ClaimSet, target entities.Entity, matchType mappings.MatchType, matchScore int) (Match, bool) {
	claims.Claim(target.ExternalID)
	return Match{
		TargetID:   target.ExternalID,
		TargetName: target.DisplayName,
		Type:       matchType,
		Score:      matchScore,
	}, true
}

// candidates returns the pool sorted by ExternalID for deterministic
// enumeration. Targets claimed earlier in this run and targets a stored
// mapping already binds are excluded; a mapped target is reachable only
// through its own source's sticky lookup.
func (m *Matcher) candidates(ctx context.Context, pool []entities.Entity, store mappings.Store, claims *ClaimSet) []entities.Entity {
	out := make([]entities.Entity, 0, len(pool))
	for _, target := range pool {
		if claims.Claimed(target.ExternalID) {
			continue
		}
		if _, err := store.GetByTarget(ctx, target.ExternalID); err == nil {
			continue
		}
		out = append(out, target)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExternalID < out[j].ExternalID
	})
	return out
}
