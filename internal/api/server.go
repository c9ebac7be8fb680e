// Package api exposes the pipeline over HTTP: bulk parse, targeted refresh,
// single and batch lookup, the bootstrap hook, run history and health.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/econ-calendar/internal/lookup"
	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/refresh"
	"github.com/sells-group/econ-calendar/internal/resilience"
)

// Pipeline runs pipeline invocations.
type Pipeline interface {
	Bootstrap(ctx context.Context) (*refresh.ParseResult, error)
	ParseHTML(ctx context.Context, html string) (*refresh.ParseResult, error)
	Refresh(ctx context.Context, req refresh.Request) (*refresh.RefreshResult, error)
}

// Lookup answers single-event lookups.
type Lookup interface {
	Get(ctx context.Context, req lookup.Request) (*lookup.Result, error)
	GetBatch(ctx context.Context, reqs []lookup.Request) []lookup.Result
}

// Store is the read surface used by the health and runs endpoints.
type Store interface {
	Ping(ctx context.Context) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
}

// Config configures the router.
type Config struct {
	// AllowedOrigins for CORS. Default: ["*"].
	AllowedOrigins []string
	// MaxBodyBytes bounds request bodies. Default: 16 MiB.
	MaxBodyBytes int64
}

const defaultMaxBodyBytes = 16 << 20

type handler struct {
	pipeline Pipeline
	lookup   Lookup
	store    Store
	breakers *resilience.ServiceBreakers
	maxBody  int64
}

// NewRouter wires the routes. breakers may be nil.
func NewRouter(cfg Config, p Pipeline, l Lookup, st Store, breakers *resilience.ServiceBreakers) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	h := &handler{pipeline: p, lookup: l, store: st, breakers: breakers, maxBody: maxBody}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Client-Info", "apikey"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/events/parse", h.parse)
		r.Post("/events/refresh", h.refresh)
		r.Post("/events/lookup", h.lookupEvents)
		r.Post("/events/bootstrap", h.bootstrap)
		r.Get("/runs", h.runs)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
