// Package reconcile writes normalized events to the store in fixed-size
// sub-batches. Writes are at-least-once and best-effort: a failing
// sub-batch is logged and skipped, earlier sub-batches stay written.
package reconcile

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/resilience"
)

// DefaultBatchSize is the number of events per upsert sub-batch.
const DefaultBatchSize = 200

// Writer is the store surface the adapter needs.
type Writer interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	UpsertEvents(ctx context.Context, events []model.Event) (int64, error)
}

// Stats summarizes one Upsert call.
type Stats struct {
	// Received is the number of events passed in.
	Received int `json:"received"`
	// Unique is the number of distinct external ids.
	Unique int `json:"unique"`
	// Existing counts ids that were already stored before their sub-batch.
	Existing int `json:"existing"`
	// Affected is the row count reported by the store.
	Affected int64 `json:"affected"`
	// Stored is the number of events in sub-batches that were written.
	Stored int `json:"stored"`
	// FailedBatches counts sub-batches that were skipped.
	FailedBatches int `json:"failed_batches"`
	// Events are the deduplicated events of the written sub-batches.
	Events []model.Event `json:"-"`
}

// Inserted is the number of written events that were new.
func (s Stats) Inserted() int {
	if n := s.Stored - s.Existing; n > 0 {
		return n
	}
	return 0
}

// Adapter deduplicates and upserts event batches.
type Adapter struct {
	store     Writer
	batchSize int
	retry     resilience.RetryConfig
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBatchSize overrides the sub-batch size.
func WithBatchSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithRetry overrides the retry policy used for each sub-batch.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(a *Adapter) { a.retry = cfg }
}

// New creates an Adapter over w. By default a sub-batch is retried once
// when the failure is transient.
func New(w Writer, opts ...Option) *Adapter {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 2
	a := &Adapter{store: w, batchSize: DefaultBatchSize, retry: retry}
	for _, opt := range opts {
		opt(a)
	}
	if a.retry.OnRetry == nil {
		a.retry.OnRetry = resilience.RetryLogger("store", "upsert_events")
	}
	return a
}

// Dedupe keeps the last occurrence of each external id, preserving the
// position of its first occurrence.
func Dedupe(events []model.Event) []model.Event {
	index := make(map[string]int, len(events))
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if i, ok := index[e.ExternalID]; ok {
			out[i] = e
			continue
		}
		index[e.ExternalID] = len(out)
		out = append(out, e)
	}
	return out
}

// Upsert deduplicates events by external id, then writes them in
// sub-batches. Per-batch failures are logged and
// counted, never returned; the only error is a cancelled context.
func (a *Adapter) Upsert(ctx context.Context, events []model.Event) (Stats, error) {
	unique := Dedupe(events)
	stats := Stats{Received: len(events), Unique: len(unique)}

	for start := 0; start < len(unique); start += a.batchSize {
		if err := ctx.Err(); err != nil {
			return stats, eris.Wrap(err, "reconcile: upsert cancelled")
		}
		end := min(start+a.batchSize, len(unique))
		batch := unique[start:end]

		existing, affected, err := a.writeBatch(ctx, batch)
		if err != nil {
			stats.FailedBatches++
			zap.L().Warn("reconcile: skipping failed sub-batch",
				zap.Int("batch", start/a.batchSize),
				zap.Int("count", len(batch)),
				zap.Error(err),
			)
			continue
		}
		stats.Existing += existing
		stats.Affected += affected
		stats.Stored += len(batch)
		stats.Events = append(stats.Events, batch...)
	}

	zap.L().Debug("reconcile: upsert complete",
		zap.Int("received", stats.Received),
		zap.Int("stored", stats.Stored),
		zap.Int("existing", stats.Existing),
		zap.Int64("affected", stats.Affected),
		zap.Int("failed_batches", stats.FailedBatches),
	)
	return stats, nil
}

func (a *Adapter) writeBatch(ctx context.Context, batch []model.Event) (int, int64, error) {
	ids := make([]string, len(batch))
	for i, e := range batch {
		ids[i] = e.ExternalID
	}

	var existing int
	err := resilience.Do(ctx, a.retry, func(ctx context.Context) error {
		found, err := a.store.ExistingIDs(ctx, ids)
		if err != nil {
			return err
		}
		existing = len(found)
		return nil
	})
	if err != nil {
		return 0, 0, eris.Wrap(err, "reconcile: existing ids")
	}

	affected, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (int64, error) {
		return a.store.UpsertEvents(ctx, batch)
	})
	if err != nil {
		return 0, 0, eris.Wrap(err, "reconcile: upsert events")
	}
	return existing, affected, nil
}
