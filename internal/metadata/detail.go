package metadata

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/parse"
	"github.com/sells-group/econ-calendar/internal/resilience"
	"github.com/sells-group/econ-calendar/internal/scrape"
)

// DetailOptions configures a DetailFetcher.
type DetailOptions struct {
	// GroupSize is the number of pages fetched concurrently. Default: 5.
	GroupSize int
	// Pause separates consecutive groups. Default: 500ms.
	Pause time.Duration
	// Timeout bounds each page fetch. Default: 5s.
	Timeout time.Duration
	// Sleep waits out Pause. Defaults to resilience.Sleep.
	Sleep resilience.SleepFunc
	// Breaker, when set, stops fetching once the source keeps failing.
	Breaker *resilience.CircuitBreaker
}

// DetailFetcher retrieves per-event detail pages in small groups and reads
// their severity marker. A failed fetch never surfaces as an error.
type DetailFetcher struct {
	scraper scrape.Scraper
	opts    DetailOptions
}

// NewDetailFetcher creates a DetailFetcher that fetches through s.
func NewDetailFetcher(s scrape.Scraper, opts DetailOptions) *DetailFetcher {
	if opts.GroupSize <= 0 {
		opts.GroupSize = 5
	}
	if opts.Pause < 0 {
		opts.Pause = 0
	} else if opts.Pause == 0 {
		opts.Pause = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = resilience.Sleep
	}
	return &DetailFetcher{scraper: s, opts: opts}
}

// defaultDetail is used whenever a page cannot be fetched.
func defaultDetail() parse.DetailInfo {
	return parse.DetailInfo{Impact: model.ImpactLow}
}

// Fetch retrieves one detail page. Failures are logged and yield Low impact
// with no result marker.
func (d *DetailFetcher) Fetch(ctx context.Context, url string) parse.DetailInfo {
	fetchCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	fetch := func(ctx context.Context) (*scrape.Result, error) {
		return d.scraper.Scrape(ctx, url)
	}

	var (
		res *scrape.Result
		err error
	)
	if d.opts.Breaker != nil {
		res, err = resilience.ExecuteVal(fetchCtx, d.opts.Breaker, fetch)
	} else {
		res, err = fetch(fetchCtx)
	}
	if err != nil {
		zap.L().Warn("metadata: detail fetch failed, defaulting to low impact",
			zap.String("url", url),
			zap.Error(err),
		)
		return defaultDetail()
	}
	return parse.ParseDetail(res.Page.HTML)
}

// FetchAll fetches urls in groups of GroupSize, pausing between groups.
// Every url gets an entry; if ctx ends early the remaining urls get the
// default.
func (d *DetailFetcher) FetchAll(ctx context.Context, urls []string) map[string]parse.DetailInfo {
	out := make(map[string]parse.DetailInfo, len(urls))
	for start := 0; start < len(urls); start += d.opts.GroupSize {
		if start > 0 && d.opts.Pause > 0 {
			if err := d.opts.Sleep(ctx, d.opts.Pause); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		end := min(start+d.opts.GroupSize, len(urls))
		group := urls[start:end]
		infos := make([]parse.DetailInfo, len(group))

		var g errgroup.Group
		for i, u := range group {
			g.Go(func() error {
				infos[i] = d.Fetch(ctx, u)
				return nil
			})
		}
		_ = g.Wait()

		for i, u := range group {
			out[u] = infos[i]
		}
	}

	for _, u := range urls {
		if _, ok := out[u]; !ok {
			out[u] = defaultDetail()
		}
	}
	return out
}
