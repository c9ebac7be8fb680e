package refresh

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/reconcile"
)

// ErrNoCalendar is returned when pasted markup contains no known layout.
var ErrNoCalendar = eris.New("refresh: no calendar layout in document")

// ParseResult reports a bulk parse or bootstrap.
type ParseResult struct {
	Success         bool          `json:"success"`
	RunID           string        `json:"run_id,omitempty"`
	Source          string        `json:"source,omitempty"`
	EventsProcessed int           `json:"events_processed"`
	EventsStored    int           `json:"events_stored"`
	ParsedTotal     int           `json:"parsed_total"`
	ExistingCount   int           `json:"existing_count"`
	InsertedCount   int           `json:"inserted_count"`
	UpsertedCount   int64         `json:"upserted_count"`
	Events          []model.Event `json:"events"`
}

func newParseResult(runID string, b *Batch, stats reconcile.Stats) *ParseResult {
	events := stats.Events
	if events == nil {
		events = []model.Event{}
	}
	return &ParseResult{
		Success:         true,
		RunID:           runID,
		Source:          b.Source,
		EventsProcessed: stats.Unique,
		EventsStored:    stats.Stored,
		ParsedTotal:     b.Parsed,
		ExistingCount:   stats.Existing,
		InsertedCount:   stats.Inserted(),
		UpsertedCount:   stats.Affected,
		Events:          events,
	}
}

func runResult(b *Batch, stats reconcile.Stats) *model.RunResult {
	return &model.RunResult{
		Parsed:   b.Parsed,
		Stored:   stats.Stored,
		Existing: stats.Existing,
		Affected: stats.Affected,
		Failed:   stats.FailedBatches,
	}
}

// Bootstrap fetches the current calendar week with source fallback and
// stores every row. It is the entry point for the external timer.
func (s *Service) Bootstrap(ctx context.Context) (*ParseResult, error) {
	runID := s.startRun(ctx, model.RunKindBootstrap, "")
	log := zap.L().With(zap.String("run_id", runID), zap.String("kind", string(model.RunKindBootstrap)))

	b, err := s.fetchAny(ctx, s.newEngine(true))
	if err != nil {
		log.Error("refresh: bootstrap fetch failed", zap.Error(err))
		s.finishRun(ctx, runID, nil, err)
		return nil, err
	}

	stats, err := s.adapter.Upsert(context.WithoutCancel(ctx), b.Events)
	result := runResult(b, stats)
	s.finishRun(ctx, runID, result, err)
	if err != nil {
		return nil, err
	}

	log.Info("refresh: bootstrap complete",
		zap.String("source", b.Source),
		zap.Int("parsed", b.Parsed),
		zap.Int("stored", stats.Stored),
		zap.Int("existing", stats.Existing),
	)
	return newParseResult(runID, b, stats), nil
}

// ParseHTML parses a calendar page supplied by the caller and stores its
// rows. The source is detected from the markup.
func (s *Service) ParseHTML(ctx context.Context, html string) (*ParseResult, error) {
	if strings.TrimSpace(html) == "" {
		return nil, eris.Wrap(ErrNoCalendar, "empty document")
	}
	source := s.parser.DetectSource(html)
	if source == "" {
		return nil, ErrNoCalendar
	}

	runID := s.startRun(ctx, model.RunKindParse, source)
	log := zap.L().With(zap.String("run_id", runID), zap.String("source", source))

	raws, err := s.parser.ParseAny(html)
	if err != nil {
		err = eris.Wrap(err, "refresh: parse document")
		s.finishRun(ctx, runID, nil, err)
		return nil, err
	}

	fetchedAt := s.nowFunc().UTC()
	b := &Batch{
		Source:    source,
		Parsed:    len(raws),
		Events:    s.enrich(ctx, raws, fetchedAt, "", s.newEngine(true)),
		FetchedAt: fetchedAt,
	}

	stats, err := s.adapter.Upsert(context.WithoutCancel(ctx), b.Events)
	s.finishRun(ctx, runID, runResult(b, stats), err)
	if err != nil {
		return nil, err
	}

	log.Info("refresh: parsed document",
		zap.Int("parsed", b.Parsed),
		zap.Int("stored", stats.Stored),
		zap.Int("existing", stats.Existing),
	)
	return newParseResult(runID, b, stats), nil
}

// RefreshSource fetches one named source without fallback and stores its
// rows. It backs single-event lookups, so it makes exactly one network
// fetch: metadata comes from store history, never from detail pages.
func (s *Service) RefreshSource(ctx context.Context, name string) ([]model.Event, error) {
	src, ok := s.source(name)
	if !ok {
		return nil, eris.Errorf("refresh: unknown source %q", name)
	}
	b, err := s.fetchSource(ctx, src, s.newEngine(false))
	if err != nil {
		return nil, eris.Wrapf(err, "refresh: source %s", name)
	}
	stats, err := s.adapter.Upsert(context.WithoutCancel(ctx), b.Events)
	if err != nil {
		return nil, err
	}
	return stats.Events, nil
}
