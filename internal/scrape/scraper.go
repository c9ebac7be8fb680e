// Package scrape fetches raw calendar and detail pages, directly or through
// a scraping proxy when a source blocks direct requests.
package scrape

import (
	"context"
	"time"
)

// Page is a fetched document with its markup intact.
type Page struct {
	URL        string
	HTML       string
	StatusCode int
	FetchedAt  time.Time
}

// Result holds a scraped page with its source.
type Result struct {
	Page   Page
	Source string // e.g. "local_http", "firecrawl"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
