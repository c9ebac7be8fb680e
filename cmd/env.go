package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/econ-calendar/internal/config"
	"github.com/sells-group/econ-calendar/internal/lookup"
	"github.com/sells-group/econ-calendar/internal/metadata"
	"github.com/sells-group/econ-calendar/internal/refresh"
	"github.com/sells-group/econ-calendar/internal/resilience"
	"github.com/sells-group/econ-calendar/internal/scrape"
	"github.com/sells-group/econ-calendar/internal/store"
	"github.com/sells-group/econ-calendar/pkg/firecrawl"
)

// detailBreaker names the breaker guarding detail-page fetches.
const detailBreaker = "detail_pages"

// appEnv holds the store, scrape chain and services needed by the
// serve/bootstrap/parse/lookup commands.
type appEnv struct {
	Store    store.Store
	Breakers *resilience.ServiceBreakers
	Service  *refresh.Service
	Lookup   *lookup.Gateway
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode, opens and migrates the store and wires
// the pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	breakers := resilience.NewServiceBreakers(resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs))
	chain := buildScraper(cfg, breakers)

	svc := buildService(st, cfg, chain, breakers)

	gw := lookup.New(st, svc, cfg.Lookup.PrimarySource,
		lookup.WithFreshness(time.Duration(cfg.Lookup.FreshnessSecs)*time.Second),
	)

	return &appEnv{
		Store:    st,
		Breakers: breakers,
		Service:  svc,
		Lookup:   gw,
	}, nil
}

// buildService wires the orchestrator. Calendar fetches go through the
// breaker-guarded chain; detail pages use the same scrapers unguarded,
// behind their own single breaker.
func buildService(st refresh.Store, c *config.Config, chain *scrape.Chain, breakers *resilience.ServiceBreakers) *refresh.Service {
	rc := buildRefreshConfig(c)
	rc.Detail.Breaker = breakers.Get(detailBreaker)
	return refresh.New(st, chain, rc, refresh.WithDetailScraper(chain.Unguarded()))
}

// buildScraper assembles the fetch chain: direct HTTP first, then the
// Firecrawl proxy when a key is configured.
func buildScraper(c *config.Config, breakers *resilience.ServiceBreakers) *scrape.Chain {
	local := scrape.NewLocalScraper(scrape.LocalOptions{
		UserAgent:    c.Scrape.UserAgent,
		Timeout:      time.Duration(c.Scrape.TimeoutSecs) * time.Second,
		DefaultRate:  rate.Limit(c.Scrape.RatePerSecond),
		DefaultBurst: c.Scrape.Burst,
	})
	scrapers := []scrape.Scraper{local}

	if c.Firecrawl.Key != "" {
		fc := scrape.NewFirecrawlAdapter(firecrawl.NewClient(c.Firecrawl.Key, firecrawl.WithBaseURL(c.Firecrawl.BaseURL)))
		fc.WaitFor = time.Duration(c.Firecrawl.WaitForMs) * time.Millisecond
		fc.Timeout = time.Duration(c.Firecrawl.TimeoutSecs) * time.Second
		scrapers = append(scrapers, fc)
		zap.L().Info("firecrawl proxy enabled")
	} else {
		zap.L().Debug("ECONCAL_FIRECRAWL_KEY not set, direct fetches only")
	}

	chain := scrape.NewChain(scrapers...)
	if breakers != nil {
		chain = chain.WithBreakers(breakers)
	}
	return chain
}

// buildRefreshConfig maps file/env settings onto the orchestrator config.
func buildRefreshConfig(c *config.Config) refresh.Config {
	var sources []refresh.Source
	for _, s := range c.Sources.Ordered() {
		sources = append(sources, refresh.Source{
			Name:          s.Name,
			URL:           s.URL,
			DetailBaseURL: s.DetailBaseURL,
			Timeout:       time.Duration(s.TimeoutSecs) * time.Second,
		})
	}

	retry := resilience.FromRetryConfig(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs)
	retry.OnRetry = resilience.RetryLogger("store", "upsert_events")

	pause := time.Duration(c.Metadata.DetailPauseMs) * time.Millisecond
	if c.Metadata.DetailPauseMs == 0 {
		pause = -1
	}

	return refresh.Config{
		Sources:     sources,
		MaxAttempts: c.Refresh.MaxAttempts,
		BatchSize:   c.Refresh.BatchSize,
		CacheTTL:    time.Duration(c.Metadata.CacheTTLMins) * time.Minute,
		Retry:       &retry,
		Detail: metadata.DetailOptions{
			GroupSize: c.Metadata.DetailGroupSize,
			Pause:     pause,
			Timeout:   time.Duration(c.Metadata.DetailTimeoutSecs) * time.Second,
		},
	}
}
