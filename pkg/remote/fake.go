package remote

import (
	"context"
	"fmt"
	"sync"
)

// FakeClient is an in-memory Client for tests and offline dry runs. Writes
// are recorded; failures can be injected per batch index or per create.
type FakeClient struct {
	mu sync.Mutex

	systemID string
	records  map[EntityKind][]Record
	nextID   int

	// ListErr, when set, is returned by every ListAll call.
	ListErr error
	// CreateErr, when set, is returned by every CreateRecord call.
	CreateErr error
	// CreateErrOnce is returned by the next CreateRecord call only.
	CreateErrOnce error
	// FailBatches maps zero-based BatchUpdate call indexes to errors.
	FailBatches map[int]error

	// Recorded activity.
	Creates      []map[string]string
	BatchCalls   [][]Update
	ListAllCalls int
}

// NewFakeClient creates a fake remote system seeded with records.
func NewFakeClient(systemID string, seed map[EntityKind][]Record) *FakeClient {
	if seed == nil {
		seed = make(map[EntityKind][]Record)
	}
	return &FakeClient{
		systemID: systemID,
		records:  seed,
		nextID:   1,
	}
}

// SystemID implements Client.
func (f *FakeClient) SystemID() string {
	return f.systemID
}

// ListAll implements Client.
func (f *FakeClient) ListAll(_ context.Context, kind EntityKind) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListAllCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]Record, len(f.records[kind]))
	for i, r := range f.records[kind] {
		props := make(map[string]string, len(r.Properties))
		for k, v := range r.Properties {
			props[k] = v
		}
		out[i] = Record{ID: r.ID, Name: r.Name, Properties: props}
	}
	return out, nil
}

// CreateRecord implements Client.
func (f *FakeClient) CreateRecord(_ context.Context, kind EntityKind, properties map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErrOnce != nil {
		err := f.CreateErrOnce
		f.CreateErrOnce = nil
		return "", err
	}
	if f.CreateErr != nil {
		return "", f.CreateErr
	}

	props := make(map[string]string, len(properties))
	for k, v := range properties {
		props[k] = v
	}
	f.Creates = append(f.Creates, props)

	id := fmt.Sprintf("%s-new-%d", f.systemID, f.nextID)
	f.nextID++
	f.records[kind] = append(f.records[kind], Record{ID: id, Name: props["name"], Properties: props})
	return id, nil
}

// BatchUpdate implements Client. Successful updates are applied to the
// seeded records so subsequent ListAll calls observe them.
func (f *FakeClient) BatchUpdate(_ context.Context, kind EntityKind, updates []Update) ([]UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := len(f.BatchCalls)
	f.BatchCalls = append(f.BatchCalls, updates)

	if err, ok := f.FailBatches[call]; ok {
		return nil, err
	}

	results := make([]UpdateResult, len(updates))
	for i, u := range updates {
		results[i] = UpdateResult{ID: u.ID}
		for j, r := range f.records[kind] {
			if r.ID != u.ID {
				continue
			}
			if r.Properties == nil {
				r.Properties = make(map[string]string)
			}
			for k, v := range u.Properties {
				r.Properties[k] = v
			}
			f.records[kind][j] = r
		}
	}
	return results, nil
}

// UpdatedIDs returns the remote IDs touched by successful batch calls.
func (f *FakeClient) UpdatedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for call, updates := range f.BatchCalls {
		if _, failed := f.FailBatches[call]; failed {
			continue
		}
		for _, u := range updates {
			ids = append(ids, u.ID)
		}
	}
	return ids
}
