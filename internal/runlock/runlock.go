// Package runlock provides the re-entrancy guard that keeps at most one
// sync run active per system pair. A concurrent trigger is rejected
// immediately, never queued, so duplicate creates and duplicate downstream
// notifications cannot happen.
package runlock

import (
	"sync"
	"time"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
)

// Guard tracks active runs keyed by pair label.
type Guard struct {
	mu     sync.Mutex
	active map[string]time.Time
}

// New creates an empty Guard.
func New() *Guard {
	return &Guard{active: make(map[string]time.Time)}
}

// Acquire claims the pair for a run. Returns a ConcurrentRunError when a
// run for the pair is already active. On success the caller must Release.
func (g *Guard) Acquire(pair string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if startedAt, running := g.active[pair]; running {
		return errors.NewConcurrentRunError(pair, startedAt.UTC().Format(time.RFC3339))
	}
	g.active[pair] = time.Now()
	return nil
}

// Release frees the pair for the next trigger.
func (g *Guard) Release(pair string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, pair)
}

// Active reports whether a run is in progress for the pair.
func (g *Guard) Active(pair string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, running := g.active[pair]
	return running
}
