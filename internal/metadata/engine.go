package metadata

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/econ-calendar/internal/cache"
	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/parse"
)

// HistoryReader is the store surface the engine reads.
type HistoryReader interface {
	History(ctx context.Context, pairs []model.PairKey) ([]model.Event, error)
}

// Query asks for one pair's metadata. DetailURL, when set, is fetched if
// the store has no usable history for the pair.
type Query struct {
	Key       model.PairKey
	DetailURL string
}

// DefaultCacheTTL bounds how long resolved metadata is reused.
const DefaultCacheTTL = 30 * time.Minute

// Engine resolves metadata for batches of pairs. Results are memoized in
// injected caches; build one Engine per pipeline invocation.
type Engine struct {
	history HistoryReader
	details *DetailFetcher

	pairs *cache.TTL[model.PairKey, model.Metadata]
	pages *cache.TTL[string, parse.DetailInfo]
}

// Option configures an Engine.
type Option func(*Engine)

// WithDetailFetcher enables the detail-page fallback.
func WithDetailFetcher(d *DetailFetcher) Option {
	return func(e *Engine) { e.details = d }
}

// WithPairCache replaces the per-pair cache.
func WithPairCache(c *cache.TTL[model.PairKey, model.Metadata]) Option {
	return func(e *Engine) { e.pairs = c }
}

// WithPageCache replaces the per-URL detail page cache.
func WithPageCache(c *cache.TTL[string, parse.DetailInfo]) Option {
	return func(e *Engine) { e.pages = c }
}

// NewEngine creates an Engine reading history from h.
func NewEngine(h HistoryReader, opts ...Option) *Engine {
	e := &Engine{history: h}
	for _, opt := range opts {
		opt(e)
	}
	if e.pairs == nil {
		e.pairs = cache.New[model.PairKey, model.Metadata](0, DefaultCacheTTL)
	}
	if e.pages == nil {
		e.pages = cache.New[string, parse.DetailInfo](0, DefaultCacheTTL)
	}
	return e
}

// Resolve returns metadata for each query it can answer. Pairs with store
// history are answered from it; the rest use their detail page when one is
// given. Pairs with neither are absent from the result. Store and fetch
// failures are logged, never returned.
func (e *Engine) Resolve(ctx context.Context, queries []Query) map[model.PairKey]model.Metadata {
	out := make(map[model.PairKey]model.Metadata, len(queries))

	var missing []model.PairKey
	seen := make(map[model.PairKey]bool, len(queries))
	for _, q := range queries {
		if seen[q.Key] {
			continue
		}
		seen[q.Key] = true
		if m, ok := e.pairs.Get(q.Key); ok {
			out[q.Key] = m
			continue
		}
		missing = append(missing, q.Key)
	}
	if len(missing) == 0 {
		return out
	}

	history, err := e.history.History(ctx, missing)
	if err != nil {
		zap.L().Warn("metadata: history query failed", zap.Int("pairs", len(missing)), zap.Error(err))
	}
	for k, m := range Infer(history) {
		if !seen[k] {
			continue
		}
		out[k] = m
		e.pairs.Put(k, m)
	}

	if e.details == nil {
		return out
	}

	// Detail fallback for pairs the store could not answer.
	urlFor := make(map[model.PairKey]string)
	var urls []string
	queued := make(map[string]bool)
	for _, q := range queries {
		if _, ok := out[q.Key]; ok || q.DetailURL == "" {
			continue
		}
		if _, ok := urlFor[q.Key]; ok {
			continue
		}
		urlFor[q.Key] = q.DetailURL
		if _, ok := e.pages.Get(q.DetailURL); ok || queued[q.DetailURL] {
			continue
		}
		queued[q.DetailURL] = true
		urls = append(urls, q.DetailURL)
	}

	if len(urls) > 0 {
		zap.L().Debug("metadata: fetching detail pages", zap.Int("count", len(urls)))
		for u, info := range e.details.FetchAll(ctx, urls) {
			e.pages.Put(u, info)
		}
	}

	for k, u := range urlFor {
		info, ok := e.pages.Get(u)
		if !ok {
			info = defaultDetail()
		}
		m := model.Metadata{Impact: info.Impact, Direction: model.DirectionUnknown, Hint: info.Hint}
		out[k] = m
		e.pairs.Put(k, m)
	}
	return out
}
