package entities

import "context"

// SnapshotStore mirrors one system's current entities. An external
// extractor refreshes it before each run; the sync engine only reads it
// apart from the upsert refresh itself. Entities are never deleted: a
// record missing from one extraction may reappear in the next.
type SnapshotStore interface {
	// Upsert refreshes an entity keyed by its ExternalID.
	Upsert(ctx context.Context, e Entity) error

	// Get returns the entity for the external ID.
	Get(ctx context.Context, externalID string) (Entity, error)

	// List returns all mirrored entities in a deterministic order
	// (sorted by ExternalID).
	List(ctx context.Context) ([]Entity, error)

	// Len returns the number of mirrored entities.
	Len(ctx context.Context) (int, error)
}
