// Package refresh drives a pipeline invocation: fetch a calendar page with
// source fallback, parse and enrich its rows, and upsert the result.
package refresh

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/econ-calendar/internal/cache"
	"github.com/sells-group/econ-calendar/internal/metadata"
	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/parse"
	"github.com/sells-group/econ-calendar/internal/reconcile"
	"github.com/sells-group/econ-calendar/internal/resilience"
	"github.com/sells-group/econ-calendar/internal/scrape"
)

// Store is the persistence surface used by the orchestrator.
type Store interface {
	reconcile.Writer
	metadata.HistoryReader
	CreateRun(ctx context.Context, kind model.RunKind, source string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, result *model.RunResult, runErr error) error
}

// Source describes one calendar site.
type Source struct {
	// Name matches a parser source (parse.SourceForexFactory, ...).
	Name string
	// URL is the weekly calendar page.
	URL string
	// DetailBaseURL resolves relative per-event detail paths.
	DetailBaseURL string
	// Timeout bounds one calendar fetch. Default: 45s.
	Timeout time.Duration
}

// DetailURL resolves a row's detail path against the source. Returns ""
// when either side is missing or unparsable.
func (s Source) DetailURL(path string) string {
	if path == "" {
		return ""
	}
	base := s.DetailBaseURL
	if base == "" {
		base = s.URL
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return ""
	}
	ref, err := url.Parse(path)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// Config configures a Service.
type Config struct {
	// Sources are tried in order; the first is the primary.
	Sources []Source
	// MaxAttempts bounds calendar fetches in a targeted refresh. Default: 5.
	MaxAttempts int
	// BatchSize is the upsert sub-batch size. Default: 200.
	BatchSize int
	// CacheTTL bounds metadata reuse within one invocation.
	CacheTTL time.Duration
	// Detail configures detail-page fetches. A nil Breaker is allowed.
	Detail metadata.DetailOptions
	// Retry is the per-sub-batch store retry policy.
	Retry *resilience.RetryConfig
}

const (
	defaultMaxAttempts   = 5
	defaultSourceTimeout = 45 * time.Second
)

// Service runs pipeline invocations.
type Service struct {
	store         Store
	scraper       scrape.Scraper
	detailScraper scrape.Scraper
	parser        *parse.Parser
	adapter       *reconcile.Adapter
	details       *metadata.DetailFetcher
	cfg           Config

	sleep   resilience.SleepFunc
	nowFunc func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSleep replaces the targeted-wait sleeper.
func WithSleep(fn resilience.SleepFunc) Option {
	return func(s *Service) { s.sleep = fn }
}

// WithClock replaces the clock stamping fetched rows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.nowFunc = now }
}

// WithDetailScraper fetches detail pages through sc instead of the
// calendar scraper. Use it to keep detail failures away from the calendar
// fetch breakers.
func WithDetailScraper(sc scrape.Scraper) Option {
	return func(s *Service) { s.detailScraper = sc }
}

// WithParser replaces the row parser.
func WithParser(p *parse.Parser) Option {
	return func(s *Service) { s.parser = p }
}

// New creates a Service fetching through sc and writing to st.
func New(st Store, sc scrape.Scraper, cfg Config, opts ...Option) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = reconcile.DefaultBatchSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = metadata.DefaultCacheTTL
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Timeout <= 0 {
			cfg.Sources[i].Timeout = defaultSourceTimeout
		}
	}

	s := &Service{
		store:   st,
		scraper: sc,
		parser:  parse.New(),
		cfg:     cfg,
		sleep:   resilience.Sleep,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	adapterOpts := []reconcile.Option{reconcile.WithBatchSize(cfg.BatchSize)}
	if cfg.Retry != nil {
		adapterOpts = append(adapterOpts, reconcile.WithRetry(*cfg.Retry))
	}
	s.adapter = reconcile.New(st, adapterOpts...)
	if s.detailScraper == nil {
		s.detailScraper = sc
	}
	s.details = metadata.NewDetailFetcher(s.detailScraper, cfg.Detail)
	return s
}

// Sources returns the configured sources in fallback order.
func (s *Service) Sources() []Source { return s.cfg.Sources }

func (s *Service) source(name string) (Source, bool) {
	for _, src := range s.cfg.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return Source{}, false
}

// newEngine builds the per-invocation metadata engine with fresh caches.
// Without details it answers from store history only and makes no network
// calls.
func (s *Service) newEngine(details bool) *metadata.Engine {
	clock := cache.WithClock(s.nowFunc)
	opts := []metadata.Option{
		metadata.WithPairCache(cache.New[model.PairKey, model.Metadata](0, s.cfg.CacheTTL, clock)),
		metadata.WithPageCache(cache.New[string, parse.DetailInfo](0, s.cfg.CacheTTL, clock)),
	}
	if details {
		opts = append(opts, metadata.WithDetailFetcher(s.details))
	}
	return metadata.NewEngine(s.store, opts...)
}

// startRun records a run. Bookkeeping failures are logged and yield an
// empty id; they never stop the pipeline.
func (s *Service) startRun(ctx context.Context, kind model.RunKind, source string) string {
	run, err := s.store.CreateRun(ctx, kind, source)
	if err != nil {
		zap.L().Warn("refresh: create run failed", zap.String("kind", string(kind)), zap.Error(err))
		return ""
	}
	return run.ID
}

func (s *Service) finishRun(ctx context.Context, runID string, result *model.RunResult, runErr error) {
	if runID == "" {
		return
	}
	// Record the outcome even when the invocation's context has ended.
	ctx = context.WithoutCancel(ctx)
	if err := s.store.FinishRun(ctx, runID, result, runErr); err != nil {
		zap.L().Warn("refresh: finish run failed", zap.String("run_id", runID), zap.Error(err))
	}
}
