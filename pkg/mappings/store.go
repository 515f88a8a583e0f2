package mappings

import "context"

// Store persists mappings with strict 1:1 semantics: no two mappings
// share a SourceID and none share a TargetID. Upsert is idempotent so
// overlapping or retried runs converge on identical stored state.
type Store interface {
	// GetBySource returns the mapping that claims the source entity.
	GetBySource(ctx context.Context, sourceID string) (Mapping, error)

	// GetByTarget returns the mapping that claims the target entity.
	GetByTarget(ctx context.Context, targetID string) (Mapping, error)

	// Upsert updates the mapping whose SourceID already exists, else
	// inserts it. Repeating an identical upsert produces identical
	// stored state, never a duplicate row. Rejects a TargetID already
	// claimed by a different source with an AlreadyMappedError.
	Upsert(ctx context.Context, m Mapping) error

	// Delete removes a mapping by its ID. Manual unlink only; the sync
	// engine itself never deletes mappings.
	Delete(ctx context.Context, id string) error

	// List returns mappings satisfying the filter, sorted by SourceID.
	List(ctx context.Context, f Filter) ([]Mapping, error)

	// Len returns the number of stored mappings.
	Len(ctx context.Context) (int, error)
}
