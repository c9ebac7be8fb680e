package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/econ-calendar/internal/resilience"
)

// Chain tries scrapers in priority order, returning the first success.
type Chain struct {
	scrapers []Scraper
	breakers *resilience.ServiceBreakers
}

// NewChain creates a Chain. Scrapers are tried in order; the first
// successful result is returned.
func NewChain(scrapers ...Scraper) *Chain {
	return &Chain{scrapers: scrapers}
}

// WithBreakers routes each scraper through its own circuit breaker, keyed
// by scraper name, so a proxy that keeps failing is skipped quickly.
func (c *Chain) WithBreakers(sb *resilience.ServiceBreakers) *Chain {
	c.breakers = sb
	return c
}

// Unguarded returns a chain over the same scrapers without breakers.
// Detail pages fetch through it so their routine failures cannot open the
// breakers that guard calendar fetches.
func (c *Chain) Unguarded() *Chain {
	return &Chain{scrapers: c.scrapers}
}

// Name implements Scraper.
func (c *Chain) Name() string { return "chain" }

// Supports reports whether any scraper in the chain accepts url.
func (c *Chain) Supports(url string) bool {
	for _, s := range c.scrapers {
		if s.Supports(url) {
			return true
		}
	}
	return false
}

// Scrape tries each scraper in order for a single URL.
// Returns the first successful result, or an error if all fail.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		result, err := c.try(ctx, s, targetURL)
		if err == nil && result != nil {
			return result, nil
		}
		if err == nil {
			err = eris.Errorf("scrape: %s returned no page", s.Name())
		}
		zap.L().Debug("scrape: scraper failed, trying next",
			zap.String("scraper", s.Name()),
			zap.String("url", targetURL),
			zap.Error(err),
		)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}

func (c *Chain) try(ctx context.Context, s Scraper, targetURL string) (*Result, error) {
	if c.breakers == nil {
		return s.Scrape(ctx, targetURL)
	}
	return resilience.ExecuteVal(ctx, c.breakers.Get(s.Name()), func(ctx context.Context) (*Result, error) {
		return s.Scrape(ctx, targetURL)
	})
}
