// Package remote declares the collaborator interfaces the sync engine
// drives. Concrete vendor clients (HTTP, OAuth refresh, browser
// automation) live outside this repository; the engine only needs these
// operations.
package remote

import "context"

// EntityKind names a remote record type, e.g. "company" or "project".
type EntityKind string

// Record is one remote record as the vendor API returns it.
type Record struct {
	ID         string
	Name       string
	Properties map[string]string
}

// Update is one pending field write against an existing remote record.
type Update struct {
	ID         string
	Properties map[string]string
}

// UpdateResult is the per-item outcome of a batch update.
type UpdateResult struct {
	ID  string
	Err error
}

// Client is the write/read surface of one remote system. All calls carry
// contexts; implementations own their timeouts and token refresh.
type Client interface {
	// SystemID identifies the remote system, e.g. "crm".
	SystemID() string

	// ListAll pages through every record of the kind.
	ListAll(ctx context.Context, kind EntityKind) ([]Record, error)

	// CreateRecord creates one record and returns its remote ID.
	CreateRecord(ctx context.Context, kind EntityKind, properties map[string]string) (string, error)

	// BatchUpdate applies up to the system's batch limit of updates and
	// returns one result per item. A returned error means the whole
	// batch failed; per-item errors surface in the results.
	BatchUpdate(ctx context.Context, kind EntityKind, updates []Update) ([]UpdateResult, error)
}

// UIAgent drives browser automation for systems whose write API is
// inadequate. Used only as a create fallback; out of scope here beyond
// the interface.
type UIAgent interface {
	CreateRecord(ctx context.Context, kind EntityKind, properties map[string]string) (string, error)
	UploadDocument(ctx context.Context, recordID, path string) error
}
