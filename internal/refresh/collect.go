package refresh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/econ-calendar/internal/classify"
	"github.com/sells-group/econ-calendar/internal/metadata"
	"github.com/sells-group/econ-calendar/internal/model"
	"github.com/sells-group/econ-calendar/internal/normalize"
)

// ErrAllSourcesFailed is matched (errors.Is) by the error returned when no
// source produced a calendar.
var ErrAllSourcesFailed = eris.New("refresh: all sources failed")

// SourceError is one source's failure.
type SourceError struct {
	Source string
	Err    error
}

// FetchError lists every source failure of one fetch round.
type FetchError struct {
	Failures []SourceError
}

func (e *FetchError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", f.Source, f.Err)
	}
	return "refresh: all sources failed: " + strings.Join(parts, "; ")
}

// Is matches ErrAllSourcesFailed.
func (e *FetchError) Is(target error) bool { return target == ErrAllSourcesFailed }

// Unwrap exposes each source's error.
func (e *FetchError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Err
	}
	return out
}

// Batch is one parsed and enriched calendar page.
type Batch struct {
	Source    string
	URL       string
	Parsed    int
	Events    []model.Event
	FetchedAt time.Time
}

// fetchAny tries each source once, in order, returning the first success.
func (s *Service) fetchAny(ctx context.Context, engine *metadata.Engine) (*Batch, error) {
	if len(s.cfg.Sources) == 0 {
		return nil, eris.New("refresh: no sources configured")
	}
	fe := &FetchError{}
	for _, src := range s.cfg.Sources {
		b, err := s.fetchSource(ctx, src, engine)
		if err == nil {
			return b, nil
		}
		zap.L().Warn("refresh: source failed",
			zap.String("source", src.Name),
			zap.Error(err),
		)
		fe.Failures = append(fe.Failures, SourceError{Source: src.Name, Err: err})
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fe
}

// fetchSource fetches and parses one source's calendar within its timeout.
// A fetch error, a timeout and a page without any known layout are all
// failures.
func (s *Service) fetchSource(ctx context.Context, src Source, engine *metadata.Engine) (*Batch, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, src.Timeout)
	defer cancel()

	res, err := s.scraper.Scrape(fetchCtx, src.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s", src.URL)
	}
	raws, err := s.parser.Parse(src.Name, res.Page.HTML)
	if err != nil {
		return nil, eris.Wrapf(err, "parse %s", src.URL)
	}

	fetchedAt := s.nowFunc().UTC()
	return &Batch{
		Source:    src.Name,
		URL:       src.URL,
		Parsed:    len(raws),
		Events:    s.enrich(ctx, raws, fetchedAt, src.URL, engine),
		FetchedAt: fetchedAt,
	}, nil
}

// enrich resolves metadata for the rows, then normalizes them. Metadata
// impact replaces only a defaulted impact. A row the source did not mark
// takes the detail page's colour marker when it has an actual, else a
// result classified by direction.
func (s *Service) enrich(ctx context.Context, raws []model.RawEvent, fetchedAt time.Time, sourceURL string, engine *metadata.Engine) []model.Event {
	keys := make([]model.PairKey, len(raws))
	queries := make([]metadata.Query, 0, len(raws))
	for i, r := range raws {
		keys[i] = model.PairKey{
			EventName: normalize.CleanName(r.Name),
			Currency:  strings.ToUpper(strings.TrimSpace(r.Currency)),
		}
		q := metadata.Query{Key: keys[i]}
		if !r.ImpactExplicit {
			if src, ok := s.source(r.Source); ok {
				q.DetailURL = src.DetailURL(r.DetailPath)
			}
		}
		queries = append(queries, q)
	}
	meta := engine.Resolve(ctx, queries)

	events := make([]model.Event, 0, len(raws))
	for i, r := range raws {
		m, ok := meta[keys[i]]
		if ok && !r.ImpactExplicit {
			r.Impact = m.Impact
		}
		ev := normalize.Normalize(r, fetchedAt, sourceURL)
		if ev.EventName == "" || ev.Currency == "" {
			continue
		}
		if !ev.ActualResultType.Known() && ev.Actual() != "" {
			ev.ActualResultType = classify.FromHint(m.Hint)
		}
		if !ev.ActualResultType.Known() {
			ev.ActualResultType = classify.Classify(ev.Actual(), ev.Forecast(), m.Direction)
		}
		events = append(events, ev)
	}
	return events
}
