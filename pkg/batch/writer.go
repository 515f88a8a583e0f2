// Package batch groups outbound field updates into size-bounded batches
// against the target system. Batches are independent once sequenced: a
// failing batch never rolls back or blocks the others, and there is no
// retry at this layer. Persistent failures surface on the next scheduled
// run, which is safe because every write is idempotent.
package batch

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/errors"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/logging"
	"github.com/artificialadnaan/trocksynchubv3-sub001/pkg/remote"
)

const (
	// DefaultSize is the batch size accepted by most vendor bulk APIs.
	DefaultSize = 100
	// DefaultConcurrency bounds the batches in flight at once.
	DefaultConcurrency = 4
)

// Result is the independent outcome of one batch.
type Result struct {
	Index     int
	Items     int
	Succeeded int
	// FailedIDs are the remote IDs whose update did not land: the whole
	// chunk when the batch failed, or individual per-item rejections.
	FailedIDs []string
	Err       error
}

// Report folds the per-batch results for the run summary.
type Report struct {
	Batches   []Result
	Succeeded int
	Failed    int
}

// FailedIDSet collects the failed remote IDs across all batches.
func (r Report) FailedIDSet() map[string]bool {
	out := make(map[string]bool)
	for _, b := range r.Batches {
		for _, id := range b.FailedIDs {
			out[id] = true
		}
	}
	return out
}

// Errs returns the batch-scoped errors, if any.
func (r Report) Errs() []error {
	var errs []error
	for _, b := range r.Batches {
		if b.Err != nil {
			errs = append(errs, b.Err)
		}
	}
	return errs
}

// Writer issues batched updates with bounded concurrency.
type Writer struct {
	size        int
	concurrency int
}

// Option configures a Writer.
type Option func(*Writer)

// WithSize overrides the batch size.
func WithSize(size int) Option {
	return func(w *Writer) {
		if size > 0 {
			w.size = size
		}
	}
}

// WithConcurrency overrides how many batches may be in flight at once.
func WithConcurrency(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// New creates a Writer.
func New(opts ...Option) *Writer {
	w := &Writer{size: DefaultSize, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write splits the updates into batches and issues them against the
// client. Cancellation is checked between batch submissions; batches
// already committed stay committed.
func (w *Writer) Write(ctx context.Context, client remote.Client, kind remote.EntityKind, updates []remote.Update) Report {
	if len(updates) == 0 {
		return Report{}
	}

	log := logging.FromContext(ctx)
	chunks := w.split(updates)
	results := make([]Result, len(chunks))

	p := pool.New().WithMaxGoroutines(w.concurrency)
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			// Batches not yet submitted are recorded as canceled; the
			// next idempotent run picks them up.
			for j := i; j < len(chunks); j++ {
				results[j] = Result{Index: j, Items: len(chunks[j]), FailedIDs: updateIDs(chunks[j]), Err: errors.ErrCanceled}
			}
			break
		}

		i, chunk := i, chunk
		p.Go(func() {
			results[i] = w.writeBatch(ctx, client, kind, i, chunk)
		})
	}
	p.Wait()

	report := Report{Batches: results}
	for _, r := range results {
		report.Succeeded += r.Succeeded
		report.Failed += r.Items - r.Succeeded
	}

	if report.Failed > 0 {
		log.Warn().
			Int("succeeded", report.Succeeded).
			Int("failed", report.Failed).
			Int("batches", len(chunks)).
			Msg("Batch write completed with failures")
	} else {
		log.Debug().
			Int("succeeded", report.Succeeded).
			Int("batches", len(chunks)).
			Msg("Batch write completed")
	}
	return report
}

// writeBatch issues one batch and tallies its per-item results.
func (w *Writer) writeBatch(ctx context.Context, client remote.Client, kind remote.EntityKind, index int, chunk []remote.Update) Result {
	result := Result{Index: index, Items: len(chunk)}

	itemResults, err := client.BatchUpdate(ctx, kind, chunk)
	if err != nil {
		result.Err = errors.NewRemoteWriteError(client.SystemID(), index, len(chunk), err)
		result.FailedIDs = updateIDs(chunk)
		return result
	}

	for _, ir := range itemResults {
		if ir.Err == nil {
			result.Succeeded++
		} else {
			result.FailedIDs = append(result.FailedIDs, ir.ID)
		}
	}
	return result
}

func updateIDs(chunk []remote.Update) []string {
	ids := make([]string, len(chunk))
	for i, u := range chunk {
		ids[i] = u.ID
	}
	return ids
}

// split chunks updates into size-bounded batches preserving order.
func (w *Writer) split(updates []remote.Update) [][]remote.Update {
	var chunks [][]remote.Update
	for start := 0; start < len(updates); start += w.size {
		end := start + w.size
		if end > len(updates) {
			end = len(updates)
		}
		chunks = append(chunks, updates[start:end])
	}
	return chunks
}
