package refresh

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/econ-calendar/internal/metadata"
	"github.com/sells-group/econ-calendar/internal/resilience"
	"github.com/sells-group/econ-calendar/internal/scrape"
	"github.com/sells-group/econ-calendar/internal/store"
)

const (
	ffURL       = "https://ff.test/calendar"
	invURL      = "https://inv.test/economic-calendar/"
	ffDetailURL = "https://ff.test/calendar?detail=140010"
)

var fixedNow = time.Date(2025, 10, 13, 13, 0, 0, 0, time.UTC)

// ffPage renders a forexfactory table with the given CPI actual.
func ffPage(cpiActual string) string {
	return fmt.Sprintf(`<html><body><table class="calendar__table">
<tr class="calendar__row" data-event-id="140001" data-timestamp="1760358600">
  <td class="calendar__cell calendar__currency">USD</td>
  <td class="calendar__cell calendar__impact"><span class="icon icon--ff-impact-red"></span></td>
  <td class="calendar__cell calendar__event"><span class="calendar__event-title">Core CPI m/m</span></td>
  <td class="calendar__cell calendar__actual">%s</td>
  <td class="calendar__cell calendar__forecast">0.3%%</td>
  <td class="calendar__cell calendar__previous">0.2%%</td>
</tr>
<tr class="calendar__row" data-event-id="140002" data-timestamp="1760364000">
  <td class="calendar__cell calendar__currency">EUR</td>
  <td class="calendar__cell calendar__impact"><span class="icon icon--ff-impact-ora"></span></td>
  <td class="calendar__cell calendar__event"><span class="calendar__event-title">German ZEW Economic Sentiment</span></td>
  <td class="calendar__cell calendar__actual"><span class="worse">-1.2</span></td>
  <td class="calendar__cell calendar__forecast">3.5</td>
  <td class="calendar__cell calendar__previous">37.3</td>
</tr>
<tr class="calendar__row" data-timestamp="1760313600">
  <td class="calendar__cell calendar__currency">JPY</td>
  <td class="calendar__cell calendar__impact"><span class="icon icon--ff-impact-gra"></span></td>
  <td class="calendar__cell calendar__event"><span class="calendar__event-title">Bank Holiday</span></td>
  <td class="calendar__cell calendar__actual"></td>
</tr>
</table></body></html>`, cpiActual)
}

// ffPageWithDetail adds a row whose impact is only on its detail page.
const ffPageWithDetail = `<html><body><table class="calendar__table">
<tr class="calendar__row" data-event-id="140010" data-timestamp="1760373000">
  <td class="calendar__cell calendar__currency">USD</td>
  <td class="calendar__cell calendar__impact"></td>
  <td class="calendar__cell calendar__event"><span class="calendar__event-title">Crude Oil Inventories</span></td>
  <td class="calendar__cell calendar__detail"><a href="/calendar?detail=140010">detail</a></td>
  <td class="calendar__cell calendar__actual"></td>
  <td class="calendar__cell calendar__forecast">-1.5M</td>
</tr>
</table></body></html>`

const ffDetailMedium = `<div class="calendar__details"><span class="icon icon--ff-impact-ora"></span></div>`

// ffPageReleased is the detail row after release, with no colour marker.
const ffPageReleased = `<html><body><table class="calendar__table">
<tr class="calendar__row" data-event-id="140010" data-timestamp="1760373000">
  <td class="calendar__cell calendar__currency">USD</td>
  <td class="calendar__cell calendar__impact"></td>
  <td class="calendar__cell calendar__event"><span class="calendar__event-title">Crude Oil Inventories</span></td>
  <td class="calendar__cell calendar__detail"><a href="/calendar?detail=140010">detail</a></td>
  <td class="calendar__cell calendar__actual">-2.1M</td>
  <td class="calendar__cell calendar__forecast">-1.5M</td>
</tr>
</table></body></html>`

// ffDetailBetter marks the latest actual as better than expected.
const ffDetailBetter = `<div class="calendar__details"><span class="icon icon--ff-impact-ora"></span>` +
	`<table><tr><td class="calendar__actual"><span class="better">-2.1M</span></td></tr></table></div>`

const invPage = `<html><body><table id="economicCalendarData"><tbody>
<tr id="eventRowId_512345" class="js-event-item" data-event-datetime="2025/10/13 12:30:00">
  <td class="first left time js-time">12:30</td>
  <td class="left flagCur noWrap"><span class="ceFlags United_States"></span> USD</td>
  <td class="left textNum sentiment noWrap" data-img_key="bull3"><i class="grayFullBullishIcon"></i></td>
  <td class="left event"><a href="/economic-calendar/core-cpi-56">Core CPI (MoM)</a></td>
  <td class="bold act">0.4%</td>
  <td class="fore">0.3%</td>
  <td class="prev">0.2%</td>
</tr>
</tbody></table></body></html>`

// reply is one canned scraper response.
type reply struct {
	html  string
	err   error
	block bool
}

// seqScraper serves canned replies per URL; the last reply repeats.
type seqScraper struct {
	mu      sync.Mutex
	replies map[string][]reply
	calls   map[string]int
}

func newSeqScraper() *seqScraper {
	return &seqScraper{replies: make(map[string][]reply), calls: make(map[string]int)}
}

func (s *seqScraper) on(url string, replies ...reply) *seqScraper {
	s.replies[url] = replies
	return s
}

func (s *seqScraper) Name() string           { return "seq" }
func (s *seqScraper) Supports(_ string) bool { return true }

func (s *seqScraper) Scrape(ctx context.Context, url string) (*scrape.Result, error) {
	s.mu.Lock()
	n := s.calls[url]
	s.calls[url]++
	rs := s.replies[url]
	s.mu.Unlock()

	if len(rs) == 0 {
		return nil, errors.New("no such page")
	}
	r := rs[min(n, len(rs)-1)]
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return &scrape.Result{Page: scrape.Page{URL: url, HTML: r.html, StatusCode: 200}, Source: "seq"}, nil
}

func (s *seqScraper) count(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

type sleeps struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testConfig() Config {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 1
	return Config{
		Sources: []Source{
			{Name: "forexfactory", URL: ffURL, DetailBaseURL: "https://ff.test", Timeout: time.Second},
			{Name: "investing", URL: invURL, DetailBaseURL: "https://inv.test", Timeout: time.Second},
		},
		MaxAttempts: 5,
		Retry:       &retry,
		Detail: metadata.DetailOptions{
			Pause: -1,
			Sleep: func(context.Context, time.Duration) error { return nil },
		},
	}
}

func newTestService(t *testing.T, sc scrape.Scraper, cfg Config, opts ...Option) (*Service, *store.SQLiteStore, *sleeps) {
	t.Helper()
	st := newTestStore(t)
	rec := &sleeps{}
	opts = append([]Option{WithSleep(rec.sleep), WithClock(func() time.Time { return fixedNow })}, opts...)
	svc := New(st, sc, cfg, opts...)
	return svc, st, rec
}
