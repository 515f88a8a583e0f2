package runlock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
)

func TestAcquireRelease(t *testing.T) {
	g := New()

	require.NoError(t, g.Acquire("pm:crm"))
	assert.True(t, g.Active("pm:crm"))

	err := g.Acquire("pm:crm")
	assert.True(t, errors.IsConcurrentRun(err))

	// A different pair is independent.
	require.NoError(t, g.Acquire("pm:billing"))

	g.Release("pm:crm")
	assert.False(t, g.Active("pm:crm"))
	require.NoError(t, g.Acquire("pm:crm"))
}

func TestConcurrentAcquireAdmitsExactlyOne(t *testing.T) {
	g := New()

	var wg sync.WaitGroup
	acquired := make(chan struct{}, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Acquire("pm:crm") == nil {
				acquired <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(acquired)

	assert.Len(t, acquired, 1)
}
