package scrape

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/econ-calendar/internal/resilience"
	"github.com/sells-group/econ-calendar/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as a Scraper for single-page scrapes.
type FirecrawlAdapter struct {
	client firecrawl.Client
	// WaitFor gives client-rendered rows time to appear before capture.
	WaitFor time.Duration
	// Timeout is forwarded as the proxy-side budget.
	Timeout time.Duration
	nowFunc func() time.Time
}

// NewFirecrawlAdapter creates a FirecrawlAdapter from a Firecrawl client.
func NewFirecrawlAdapter(client firecrawl.Client) *FirecrawlAdapter {
	return &FirecrawlAdapter{client: client, nowFunc: time.Now}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports returns true since Firecrawl can attempt any URL as a fallback.
func (f *FirecrawlAdapter) Supports(_ string) bool { return true }

// Scrape fetches a single URL via Firecrawl's scrape API, requesting the raw
// markup so the row parsers see the same document a browser would.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     targetURL,
		Formats: []string{firecrawl.FormatRawHTML},
		WaitFor: int(f.WaitFor / time.Millisecond),
		Timeout: int(f.Timeout / time.Millisecond),
	})
	if err != nil {
		var apiErr *firecrawl.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return nil, resilience.NewTransientError(err, apiErr.StatusCode)
		}
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}

	md := resp.Data.Metadata
	if md.StatusCode >= 400 {
		return nil, eris.Wrap(resilience.NewStatusError(targetURL, md.StatusCode), "firecrawl: origin")
	}

	html := resp.Data.RawHTML
	if html == "" {
		html = resp.Data.HTML
	}
	if html == "" {
		return nil, eris.New("firecrawl: empty page")
	}

	pageURL := md.SourceURL
	if pageURL == "" {
		pageURL = targetURL
	}
	return &Result{
		Page: Page{
			URL:        pageURL,
			HTML:       html,
			StatusCode: md.StatusCode,
			FetchedAt:  f.nowFunc().UTC(),
		},
		Source: f.Name(),
	}, nil
}
