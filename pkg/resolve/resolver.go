// Package resolve decides which field values propagate from a matched
// source entity to its target counterpart. Every outcome is either a
// staged write or a logged conflict; this package never returns an error.
package resolve

import (
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/entities"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/mappings"
)

// FieldPolicy binds one propagatable field to its conflict resolution.
// Policies are static configuration, never decided at conflict time.
type FieldPolicy struct {
	Field      string              `yaml:"field"`
	Resolution mappings.Resolution `yaml:"resolution"`
}

// Outcome is what the resolver staged for one matched pair.
type Outcome struct {
	// Writes are the field values to send to the target system.
	Writes map[string]string
	// Conflicts are the differing non-empty pairs, with the policy that
	// was applied. Conflicts are data, not errors.
	Conflicts []mappings.FieldConflict
}

// HasWrites reports whether any field value was staged.
func (o Outcome) HasWrites() bool {
	return len(o.Writes) > 0
}

// Resolver applies the per-field whitelist to matched pairs.
type Resolver struct {
	policies []FieldPolicy
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPolicies replaces the propagatable-field whitelist. Order is
// preserved; fields outside the whitelist never propagate.
func WithPolicies(policies ...FieldPolicy) Option {
	return func(r *Resolver) {
		r.policies = policies
	}
}

// DefaultPolicies is the built-in propagatable-field whitelist.
func DefaultPolicies() []FieldPolicy {
	return []FieldPolicy{
		{Field: entities.FieldEmail, Resolution: mappings.SourceWins},
		{Field: entities.FieldContactName, Resolution: mappings.SourceWins},
		{Field: entities.FieldDomain, Resolution: mappings.SourceWins},
		{Field: entities.FieldStage, Resolution: mappings.SourceWins},
		{Field: entities.FieldAmount, Resolution: mappings.KeptBoth},
		{Field: entities.FieldLegalName, Resolution: mappings.TargetPreserved},
	}
}

// New creates a Resolver with the default whitelist unless overridden.
func New(opts ...Option) *Resolver {
	r := &Resolver{policies: DefaultPolicies()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve walks the whitelist for one matched pair. For each field:
// target empty and source set stages a write; equal values are a no-op;
// differing non-empty values emit a conflict resolved by the field's
// configured policy.
func (r *Resolver) Resolve(source, target entities.Entity) Outcome {
	out := Outcome{Writes: make(map[string]string)}

	for _, policy := range r.policies {
		srcValue := source.Field(policy.Field)
		tgtValue := target.Field(policy.Field)

		switch {
		case srcValue == "":
			// Nothing to propagate.
		case tgtValue == "":
			out.Writes[policy.Field] = srcValue
		case srcValue == tgtValue:
			// Already in sync.
		default:
			conflict := mappings.FieldConflict{
				Field:       policy.Field,
				SourceValue: srcValue,
				TargetValue: tgtValue,
				Resolution:  policy.Resolution,
			}
			out.Conflicts = append(out.Conflicts, conflict)
			if policy.Resolution == mappings.SourceWins {
				out.Writes[policy.Field] = srcValue
			}
		}
	}

	return out
}

// CreateProperties builds the minimal, non-destructive property set for
// creating a brand-new counterpart: the display name plus every
// whitelisted field the source carries.
func (r *Resolver) CreateProperties(source entities.Entity) map[string]string {
	props := map[string]string{"name": source.DisplayName}
	for _, policy := range r.policies {
		if v := source.Field(policy.Field); v != "" {
			props[policy.Field] = v
		}
	}
	return props
}
