package metadata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/resilience"
	"github.com/sells-group/econ-calendar/internal/scrape"
)

const (
	highDetail   = `<div class="calendar__details"><span class="icon icon--ff-impact-red"></span></div>`
	mediumDetail = `<div class="calendar__details"><span class="icon icon--ff-impact-ora"></span></div>`
)

// stubScraper serves canned pages keyed by URL and tracks concurrency.
type stubScraper struct {
	mu       sync.Mutex
	pages    map[string]string
	fail     map[string]error
	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
	block    bool
}

func newStubScraper() *stubScraper {
	return &stubScraper{
		pages: make(map[string]string),
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (s *stubScraper) Name() string           { return "stub" }
func (s *stubScraper) Supports(_ string) bool { return true }

func (s *stubScraper) Scrape(ctx context.Context, url string) (*scrape.Result, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls[url]++
	html, ok := s.pages[url]
	err := s.fail[url]
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("not found")
	}
	return &scrape.Result{Page: scrape.Page{URL: url, HTML: html}, Source: "stub"}, nil
}

func (s *stubScraper) callCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func TestDetailFetcher_Fetch(t *testing.T) {
	s := newStubScraper()
	s.pages["https://ff/detail/1"] = highDetail
	d := NewDetailFetcher(s, DetailOptions{})

	info := d.Fetch(context.Background(), "https://ff/detail/1")
	assert.Equal(t, model.ImpactHigh, info.Impact)
	assert.True(t, info.HasImpact)
}

func TestDetailFetcher_FailureDefaultsLow(t *testing.T) {
	s := newStubScraper()
	s.fail["https://ff/detail/x"] = errors.New("blocked")
	d := NewDetailFetcher(s, DetailOptions{})

	info := d.Fetch(context.Background(), "https://ff/detail/x")
	assert.Equal(t, model.ImpactLow, info.Impact)
	assert.False(t, info.HasImpact)
	assert.Equal(t, model.HintNone, info.Hint)
}

func TestDetailFetcher_PerFetchTimeout(t *testing.T) {
	s := newStubScraper()
	s.block = true
	d := NewDetailFetcher(s, DetailOptions{Timeout: 20 * time.Millisecond})

	start := time.Now()
	info := d.Fetch(context.Background(), "https://ff/detail/slow")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, model.ImpactLow, info.Impact)
}

func TestDetailFetcher_FetchAllGroups(t *testing.T) {
	s := newStubScraper()
	var urls []string
	for i := range 12 {
		u := "https://ff/detail/" + string(rune('a'+i))
		s.pages[u] = mediumDetail
		urls = append(urls, u)
	}
	rec := &sleepRecorder{}
	d := NewDetailFetcher(s, DetailOptions{GroupSize: 5, Pause: 300 * time.Millisecond, Sleep: rec.sleep})

	got := d.FetchAll(context.Background(), urls)
	require.Len(t, got, 12)
	for _, u := range urls {
		assert.Equal(t, model.ImpactMedium, got[u].Impact)
		assert.Equal(t, 1, s.callCount(u))
	}
	// 12 urls in groups of 5 -> 3 groups, 2 pauses.
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 300 * time.Millisecond}, rec.waits)
	assert.LessOrEqual(t, s.peak.Load(), int32(5))
}

func TestDetailFetcher_FetchAllCancelledFillsDefaults(t *testing.T) {
	s := newStubScraper()
	urls := []string{"u1", "u2", "u3"}
	for _, u := range urls {
		s.pages[u] = highDetail
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDetailFetcher(s, DetailOptions{
		GroupSize: 1,
		Sleep: func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		},
	})

	got := d.FetchAll(ctx, urls)
	require.Len(t, got, 3)
	assert.Equal(t, model.ImpactHigh, got["u1"].Impact)
	assert.Equal(t, model.ImpactLow, got["u2"].Impact)
	assert.Equal(t, model.ImpactLow, got["u3"].Impact)
	assert.Equal(t, 0, s.callCount("u2"))
}

func TestDetailFetcher_BreakerStopsFetching(t *testing.T) {
	s := newStubScraper()
	for _, u := range []string{"a", "b", "c", "d"} {
		s.fail[u] = errors.New("forbidden")
	}
	now := time.Date(2025, 10, 13, 12, 0, 0, 0, time.UTC)
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		Now:              func() time.Time { return now },
	})
	d := NewDetailFetcher(s, DetailOptions{GroupSize: 1, Pause: -1, Breaker: cb})

	got := d.FetchAll(context.Background(), []string{"a", "b", "c", "d"})
	require.Len(t, got, 4)
	assert.Equal(t, 1, s.callCount("a"))
	assert.Equal(t, 1, s.callCount("b"))
	assert.Equal(t, 0, s.callCount("c"))
	assert.Equal(t, 0, s.callCount("d"))
	assert.Equal(t, resilience.CircuitOpen, cb.State())
}
