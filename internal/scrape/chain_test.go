package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/econ-calendar/internal/resilience"
)

// mockScraper implements Scraper for testing.
type mockScraper struct {
	name     string
	supports bool
	result   *Result
	err      error
	calls    int
}

func (m *mockScraper) Name() string           { return m.name }
func (m *mockScraper) Supports(_ string) bool { return m.supports }
func (m *mockScraper) Scrape(_ context.Context, _ string) (*Result, error) {
	m.calls++
	return m.result, m.err
}

func pageResult(source string) *Result {
	return &Result{
		Page:   Page{URL: "https://www.forexfactory.com/calendar", HTML: "<table></table>", StatusCode: 200},
		Source: source,
	}
}

func TestChain_Scrape_FirstSuccess(t *testing.T) {
	s1 := &mockScraper{name: "primary", supports: true, result: pageResult("primary")}
	s2 := &mockScraper{name: "fallback", supports: true}

	chain := NewChain(s1, s2)
	result, err := chain.Scrape(context.Background(), "https://www.forexfactory.com/calendar")

	require.NoError(t, err)
	assert.Equal(t, "primary", result.Source)
	assert.Equal(t, 0, s2.calls)
}

func TestChain_Scrape_FallbackOnError(t *testing.T) {
	s1 := &mockScraper{name: "primary", supports: true, err: errors.New("blocked")}
	s2 := &mockScraper{name: "fallback", supports: true, result: pageResult("fallback")}

	chain := NewChain(s1, s2)
	result, err := chain.Scrape(context.Background(), "https://www.forexfactory.com/calendar")

	require.NoError(t, err)
	assert.Equal(t, "fallback", result.Source)
	assert.Equal(t, 1, s1.calls)
	assert.Equal(t, 1, s2.calls)
}

func TestChain_Scrape_NilResultFallsThrough(t *testing.T) {
	s1 := &mockScraper{name: "primary", supports: true}
	s2 := &mockScraper{name: "fallback", supports: true, result: pageResult("fallback")}

	result, err := NewChain(s1, s2).Scrape(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "fallback", result.Source)
}

func TestChain_Scrape_AllFail(t *testing.T) {
	s1 := &mockScraper{name: "s1", supports: true, err: errors.New("s1 error")}
	s2 := &mockScraper{name: "s2", supports: true, err: errors.New("s2 error")}

	chain := NewChain(s1, s2)
	result, err := chain.Scrape(context.Background(), "https://example.com")

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "all scrapers failed")
	assert.Contains(t, err.Error(), "s2 error")
}

func TestChain_Scrape_NoSupportingScraper(t *testing.T) {
	s1 := &mockScraper{name: "s1", supports: false}

	chain := NewChain(s1)
	assert.False(t, chain.Supports("https://example.com"))
	_, err := chain.Scrape(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suitable scraper")
	assert.Equal(t, 0, s1.calls)
}

func TestChain_Scrape_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s1 := &mockScraper{name: "s1", supports: true, err: context.Canceled}
	s2 := &mockScraper{name: "s2", supports: true, result: pageResult("s2")}

	_, err := NewChain(s1, s2).Scrape(ctx, "https://example.com")
	require.Error(t, err)
	assert.Equal(t, 0, s2.calls)
}

func TestChain_WithBreakers_SkipsOpenCircuit(t *testing.T) {
	now := time.Date(2025, 10, 13, 12, 0, 0, 0, time.UTC)
	sb := resilience.NewServiceBreakers(resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		Now:              func() time.Time { return now },
	})
	proxy := &mockScraper{name: "firecrawl", supports: true, err: errors.New("proxy down")}
	direct := &mockScraper{name: "local_http", supports: true, err: errors.New("blocked")}

	chain := NewChain(direct, proxy).WithBreakers(sb)
	for range 2 {
		_, err := chain.Scrape(context.Background(), "https://example.com")
		require.Error(t, err)
	}
	assert.Equal(t, 2, proxy.calls)
	assert.Equal(t, resilience.CircuitOpen, sb.Get("firecrawl").State())

	_, err := chain.Scrape(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, proxy.calls)
}

func TestChain_Unguarded_SharesScrapersNotBreakers(t *testing.T) {
	now := time.Date(2025, 10, 13, 12, 0, 0, 0, time.UTC)
	sb := resilience.NewServiceBreakers(resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		Now:              func() time.Time { return now },
	})
	direct := &mockScraper{name: "local_http", supports: true, err: errors.New("404")}

	guarded := NewChain(direct).WithBreakers(sb)
	details := guarded.Unguarded()
	for range 3 {
		_, err := details.Scrape(context.Background(), "https://example.com/detail")
		require.Error(t, err)
	}
	assert.Equal(t, 3, direct.calls)
	assert.Equal(t, resilience.CircuitClosed, sb.Get("local_http").State())

	direct.err = nil
	direct.result = pageResult("local_http")
	res, err := guarded.Scrape(context.Background(), "https://example.com/calendar")
	require.NoError(t, err)
	assert.Equal(t, "local_http", res.Source)
}

func TestChain_Name(t *testing.T) {
	var s Scraper = NewChain()
	assert.Equal(t, "chain", s.Name())
}
