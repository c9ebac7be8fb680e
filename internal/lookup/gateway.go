// Package lookup serves single events from the store, refetching the
// primary calendar when the stored row is older than the freshness window.
package lookup

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/normalize"
)

// DefaultFreshness is how long a stored row is served without a fetch.
const DefaultFreshness = 5 * time.Minute

var (
	// ErrNotFound is returned when neither the store nor a live fetch has
	// the event.
	ErrNotFound = eris.New("lookup: event not found")
	// ErrInvalidRequest is returned for a missing name or unknown country.
	ErrInvalidRequest = eris.New("lookup: invalid request")
)

// Store reads stored events.
type Store interface {
	FindEvent(ctx context.Context, name, currency string) (*model.Event, error)
}

// Refresher fetches one source's calendar and stores it.
type Refresher interface {
	RefreshSource(ctx context.Context, name string) ([]model.Event, error)
}

// Request names one event.
type Request struct {
	EventName string `json:"event_name"`
	Country   string `json:"country"`
}

// Result is one lookup outcome.
type Result struct {
	Success         bool         `json:"success"`
	EventName       string       `json:"event_name"`
	Country         string       `json:"country"`
	Data            *model.Event `json:"data,omitempty"`
	Error           string       `json:"error,omitempty"`
	Cached          bool         `json:"cached"`
	Stale           bool         `json:"stale,omitempty"`
	CacheAgeSeconds int64        `json:"cache_age_seconds"`
}

// Gateway answers lookups with at most one calendar fetch per request.
type Gateway struct {
	store     Store
	refresher Refresher
	source    string
	freshness time.Duration
	nowFunc   func() time.Time

	// Concurrent lookups in one batch share a single fetch of the source.
	flight singleflight.Group
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithFreshness overrides DefaultFreshness.
func WithFreshness(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.freshness = d
		}
	}
}

// WithClock replaces the clock used for row age.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.nowFunc = now }
}

// New creates a Gateway that refetches source on a stale or missing row.
func New(st Store, rf Refresher, source string, opts ...Option) *Gateway {
	g := &Gateway{
		store:     st,
		refresher: rf,
		source:    source,
		freshness: DefaultFreshness,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Validate checks a request and resolves its currency.
func (r Request) Validate() (name, currency string, err error) {
	name = normalize.CleanName(r.EventName)
	if name == "" {
		return "", "", eris.Wrap(ErrInvalidRequest, "event_name is required")
	}
	currency = normalize.CurrencyFor(r.Country)
	if currency == "" {
		return "", "", eris.Wrapf(ErrInvalidRequest, "unknown country %q", r.Country)
	}
	return name, currency, nil
}

// Get returns the event for req. A fresh stored row is served as is. A
// stale or missing row triggers one fetch of the primary source; if that
// fetch fails and a stale row exists, the stale row is returned with
// Stale set.
func (g *Gateway) Get(ctx context.Context, req Request) (*Result, error) {
	name, currency, err := req.Validate()
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("event_name", name), zap.String("currency", currency))

	cached, err := g.store.FindEvent(ctx, name, currency)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: read store")
	}
	if cached != nil && g.age(cached) < g.freshness {
		return g.result(req, cached, true, false), nil
	}

	if ferr := g.fetch(ctx); ferr != nil {
		if cached != nil {
			log.Warn("lookup: fetch failed, serving stale row",
				zap.Duration("age", g.age(cached)),
				zap.Error(ferr),
			)
			return g.result(req, cached, true, true), nil
		}
		return nil, eris.Wrapf(ferr, "lookup: %s/%s", name, currency)
	}

	fresh, err := g.store.FindEvent(ctx, name, currency)
	if err != nil {
		return nil, eris.Wrap(err, "lookup: read store after fetch")
	}
	if fresh == nil {
		return nil, eris.Wrapf(ErrNotFound, "%s/%s", name, currency)
	}
	return g.result(req, fresh, false, false), nil
}

// GetBatch runs every request in parallel. Failures are reported per item
// and never abort the batch. Results keep the order of reqs.
func (g *Gateway) GetBatch(ctx context.Context, reqs []Request) []Result {
	out := make([]Result, len(reqs))
	var eg errgroup.Group
	for i, req := range reqs {
		eg.Go(func() error {
			res, err := g.Get(ctx, req)
			if err != nil {
				out[i] = Result{EventName: req.EventName, Country: req.Country, Error: err.Error()}
				return nil
			}
			out[i] = *res
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

func (g *Gateway) fetch(ctx context.Context) error {
	_, err, shared := g.flight.Do(g.source, func() (any, error) {
		return g.refresher.RefreshSource(ctx, g.source)
	})
	if shared {
		zap.L().Debug("lookup: shared source fetch", zap.String("source", g.source))
	}
	return err
}

func (g *Gateway) age(e *model.Event) time.Duration {
	return e.Age(g.nowFunc())
}

func (g *Gateway) result(req Request, e *model.Event, cached, stale bool) *Result {
	age := g.age(e)
	if age < 0 {
		age = 0
	}
	return &Result{
		Success:         true,
		EventName:       strings.TrimSpace(req.EventName),
		Country:         strings.TrimSpace(req.Country),
		Data:            e,
		Cached:          cached,
		Stale:           stale,
		CacheAgeSeconds: int64(age / time.Second),
	}
}
