package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/resilience"
	"github.com/sells-group/econ-calendar/internal/store"
)

// memWriter is an in-memory Writer with per-call failure injection.
type memWriter struct {
	rows        map[string]model.Event
	upsertCalls int
	batchSizes  []int
	failUpsert  map[int]error // keyed by upsert call number (1-based)
	failExisted error
}

func newMemWriter() *memWriter {
	return &memWriter{rows: make(map[string]model.Event), failUpsert: make(map[int]error)}
}

func (m *memWriter) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	if m.failExisted != nil {
		return nil, m.failExisted
	}
	out := make(map[string]bool)
	for _, id := range ids {
		if _, ok := m.rows[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (m *memWriter) UpsertEvents(_ context.Context, events []model.Event) (int64, error) {
	m.upsertCalls++
	if err := m.failUpsert[m.upsertCalls]; err != nil {
		return 0, err
	}
	m.batchSizes = append(m.batchSizes, len(events))
	for _, e := range events {
		m.rows[e.ExternalID] = e
	}
	return int64(len(events)), nil
}

func noSleepRetry() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = 2
	cfg.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return cfg
}

func makeEvents(n int) []model.Event {
	out := make([]model.Event, n)
	for i := range out {
		out[i] = model.Event{
			ExternalID: fmt.Sprintf("id-%04d", i),
			Currency:   "USD",
			EventName:  fmt.Sprintf("Event %d", i),
			Impact:     model.ImpactLow,
		}
	}
	return out
}

func TestDedupe_KeepsLastOccurrence(t *testing.T) {
	first := model.Event{ExternalID: "a", ActualValue: model.StringPtr("1")}
	other := model.Event{ExternalID: "b"}
	last := model.Event{ExternalID: "a", ActualValue: model.StringPtr("2")}

	got := Dedupe([]model.Event{first, other, last})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ExternalID)
	assert.Equal(t, "2", got[0].Actual())
	assert.Equal(t, "b", got[1].ExternalID)
}

func TestUpsert_SubBatches(t *testing.T) {
	w := newMemWriter()
	a := New(w, WithRetry(noSleepRetry()))

	stats, err := a.Upsert(context.Background(), makeEvents(450))
	require.NoError(t, err)
	assert.Equal(t, []int{200, 200, 50}, w.batchSizes)
	assert.Equal(t, 450, stats.Received)
	assert.Equal(t, 450, stats.Unique)
	assert.Equal(t, 450, stats.Stored)
	assert.Equal(t, 0, stats.Existing)
	assert.Equal(t, int64(450), stats.Affected)
	assert.Equal(t, 450, stats.Inserted())
	assert.Len(t, stats.Events, 450)
}

func TestUpsert_CountsExisting(t *testing.T) {
	w := newMemWriter()
	a := New(w, WithBatchSize(10), WithRetry(noSleepRetry()))
	events := makeEvents(25)

	_, err := a.Upsert(context.Background(), events[:10])
	require.NoError(t, err)

	stats, err := a.Upsert(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Existing)
	assert.Equal(t, 15, stats.Inserted())
}

func TestUpsert_DuplicatesAcrossInput(t *testing.T) {
	w := newMemWriter()
	a := New(w, WithBatchSize(2), WithRetry(noSleepRetry()))
	events := []model.Event{
		{ExternalID: "a", ActualValue: model.StringPtr("1")},
		{ExternalID: "b"},
		{ExternalID: "a", ActualValue: model.StringPtr("2")},
	}

	stats, err := a.Upsert(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Received)
	assert.Equal(t, 2, stats.Unique)
	assert.Equal(t, 1, w.upsertCalls)
	assert.Equal(t, "2", *w.rows["a"].ActualValue)
}

func TestUpsert_FailedBatchSkipped(t *testing.T) {
	w := newMemWriter()
	w.failUpsert[2] = errors.New("constraint violation")
	a := New(w, WithBatchSize(200), WithRetry(noSleepRetry()))

	stats, err := a.Upsert(context.Background(), makeEvents(450))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FailedBatches)
	assert.Equal(t, 250, stats.Stored)
	assert.Len(t, w.rows, 250)
	// Non-transient errors are not retried.
	assert.Equal(t, 3, w.upsertCalls)
}

func TestUpsert_TransientBatchRetriedOnce(t *testing.T) {
	w := newMemWriter()
	w.failUpsert[1] = resilience.NewTransientError(errors.New("database is locked"), 0)
	a := New(w, WithRetry(noSleepRetry()))

	stats, err := a.Upsert(context.Background(), makeEvents(5))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FailedBatches)
	assert.Equal(t, 5, stats.Stored)
	assert.Equal(t, 2, w.upsertCalls)
}

func TestUpsert_TransientFailureExhausted(t *testing.T) {
	w := newMemWriter()
	w.failUpsert[1] = resilience.NewTransientError(errors.New("timeout"), 503)
	w.failUpsert[2] = resilience.NewTransientError(errors.New("timeout"), 503)
	a := New(w, WithRetry(noSleepRetry()))

	stats, err := a.Upsert(context.Background(), makeEvents(5))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FailedBatches)
	assert.Equal(t, 0, stats.Stored)
	assert.Equal(t, 2, w.upsertCalls)
}

func TestUpsert_ExistingIDsFailureSkipsBatch(t *testing.T) {
	w := newMemWriter()
	w.failExisted = errors.New("permission denied")
	a := New(w, WithRetry(noSleepRetry()))

	stats, err := a.Upsert(context.Background(), makeEvents(3))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FailedBatches)
	assert.Equal(t, 0, w.upsertCalls)
}

func TestUpsert_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := newMemWriter()

	_, err := New(w).Upsert(ctx, makeEvents(3))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, w.upsertCalls)
}

func TestUpsert_Empty(t *testing.T) {
	w := newMemWriter()
	stats, err := New(w).Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestUpsert_SQLiteIdempotent(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	events := makeEvents(230)
	for i := range events {
		events[i].EventDate = time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
		events[i].DataSource = "forexfactory"
		events[i].LastUpdated = time.Date(2025, 10, 13, 12, 0, 0, 0, time.UTC)
	}
	a := New(st, WithRetry(noSleepRetry()))

	first, err := a.Upsert(ctx, events)
	require.NoError(t, err)
	second, err := a.Upsert(ctx, events)
	require.NoError(t, err)

	assert.Equal(t, 0, first.Existing)
	assert.Equal(t, first.Unique, second.Existing)
	assert.LessOrEqual(t, second.Inserted(), first.Inserted())

	count, err := st.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(230), count)
}
