package batch_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/batch"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/remote"
)

func makeUpdates(n int) []remote.Update {
	updates := make([]remote.Update, n)
	for i := range updates {
		updates[i] = remote.Update{
			ID:         fmt.Sprintf("c-%03d", i),
			Properties: map[string]string{"phone": "123"},
		}
	}
	return updates
}

func TestPartialBatchFailure(t *testing.T) {
	client := remote.NewFakeClient("crm", nil)
	client.FailBatches = map[int]error{1: errors.New("503 service unavailable")}

	report := batch.New(batch.WithConcurrency(1)).
		Write(context.Background(), client, "company", makeUpdates(150))

	// 150 updates split 100/50; the second batch fails but the first
	// batch's successes still count.
	require.Len(t, report.Batches, 2)
	assert.Equal(t, 100, report.Succeeded)
	assert.Equal(t, 50, report.Failed)
	assert.NoError(t, report.Batches[0].Err)
	require.Error(t, report.Batches[1].Err)
	assert.True(t, errors.IsRemoteWrite(report.Batches[1].Err))

	errs := report.Errs()
	require.Len(t, errs, 1)
}

func TestAllBatchesSucceed(t *testing.T) {
	client := remote.NewFakeClient("crm", nil)

	report := batch.New(batch.WithSize(25)).
		Write(context.Background(), client, "company", makeUpdates(60))

	require.Len(t, report.Batches, 3)
	assert.Equal(t, 60, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Len(t, client.UpdatedIDs(), 60)
}

func TestEmptyInput(t *testing.T) {
	client := remote.NewFakeClient("crm", nil)
	report := batch.New().Write(context.Background(), client, "company", nil)

	assert.Empty(t, report.Batches)
	assert.Zero(t, client.BatchCalls)
}

func TestCancellationAtBatchBoundary(t *testing.T) {
	client := remote.NewFakeClient("crm", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := batch.New(batch.WithSize(10)).
		Write(ctx, client, "company", makeUpdates(30))

	// Nothing was submitted; every batch is recorded as canceled so the
	// next run retries the idempotent writes.
	require.Len(t, report.Batches, 3)
	for _, b := range report.Batches {
		assert.ErrorIs(t, b.Err, errors.ErrCanceled)
	}
	assert.Equal(t, 0, report.Succeeded)
	assert.Empty(t, client.BatchCalls)
}
