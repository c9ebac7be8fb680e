package refresh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/econ-calendar/internal/match"
	"github.com/sells-group/econ-calendar/internal/model"
)

// ErrInvalidRequest is returned for requests missing required fields.
var ErrInvalidRequest = eris.New("refresh: invalid request")

// TargetEvent names an event the caller is waiting on, with the actual
// value the caller last saw ("" when not yet released).
type TargetEvent struct {
	ExternalID string `json:"external_id,omitempty"`
	EventName  string `json:"event_name"`
	Currency   string `json:"currency"`
	Actual     string `json:"actual_value,omitempty"`
}

// Request is a targeted refresh.
type Request struct {
	TargetDate time.Time
	Currencies []string
	Events     []TargetEvent
}

// Validate checks required fields.
func (r Request) Validate() error {
	if r.TargetDate.IsZero() {
		return eris.Wrap(ErrInvalidRequest, "targetDate is required")
	}
	for i, t := range r.Events {
		if t.ExternalID == "" && strings.TrimSpace(t.EventName) == "" {
			return eris.Wrapf(ErrInvalidRequest, "events[%d]: event_name or external_id is required", i)
		}
	}
	return nil
}

// RefreshResult reports a targeted refresh.
type RefreshResult struct {
	Success      bool          `json:"success"`
	RunID        string        `json:"run_id,omitempty"`
	Source       string        `json:"source,omitempty"`
	UpdatedCount int           `json:"updatedCount"`
	TargetEvents []TargetEvent `json:"targetEvents"`
	FoundEvents  []model.Event `json:"foundEvents"`
	Attempts     int           `json:"attempts"`
	Changed      bool          `json:"changed"`
	Message      string        `json:"message"`
}

// Refresh fetches the calendar, keeps rows for the requested date and
// currencies and stores them. When target events are given it refetches
// with a growing pause (attempt+1 seconds) until one of their actual values
// differs from the caller's, or MaxAttempts fetches have been made. What
// was collected is stored either way.
func (s *Service) Refresh(ctx context.Context, req Request) (*RefreshResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := s.startRun(ctx, model.RunKindRefresh, "")
	log := zap.L().With(zap.String("run_id", runID), zap.String("kind", string(model.RunKindRefresh)))
	engine := s.newEngine(true)

	b, err := s.fetchAny(ctx, engine)
	if err != nil {
		log.Error("refresh: fetch failed", zap.Error(err))
		s.finishRun(ctx, runID, &model.RunResult{Attempts: 1}, err)
		return nil, err
	}
	attempts := 1
	filtered := Filter(b.Events, req.TargetDate, req.Currencies)
	found := findTargets(filtered, req.Events)
	changed := len(req.Events) > 0 && anyChanged(found, req.Events)

	for len(req.Events) > 0 && !changed && attempts < s.cfg.MaxAttempts {
		wait := time.Duration(attempts) * time.Second
		log.Debug("refresh: targets unchanged, waiting",
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
		)
		if err := s.sleep(ctx, wait); err != nil {
			log.Warn("refresh: wait interrupted", zap.Error(err))
			break
		}

		next, err := s.fetchAny(ctx, engine)
		attempts++
		if err != nil {
			log.Warn("refresh: refetch failed, keeping previous rows", zap.Error(err))
			break
		}
		b = next
		filtered = Filter(b.Events, req.TargetDate, req.Currencies)
		found = findTargets(filtered, req.Events)
		changed = anyChanged(found, req.Events)
	}

	stats, err := s.adapter.Upsert(context.WithoutCancel(ctx), filtered)
	rr := runResult(b, stats)
	rr.Attempts = attempts
	s.finishRun(ctx, runID, rr, err)
	if err != nil {
		return nil, err
	}

	targets := req.Events
	if targets == nil {
		targets = []TargetEvent{}
	}
	if len(req.Events) == 0 {
		found = filtered
	}
	if found == nil {
		found = []model.Event{}
	}

	res := &RefreshResult{
		Success:      true,
		RunID:        runID,
		Source:       b.Source,
		UpdatedCount: stats.Stored,
		TargetEvents: targets,
		FoundEvents:  found,
		Attempts:     attempts,
		Changed:      changed,
		Message:      refreshMessage(len(req.Events), len(found), changed, attempts, stats.Stored),
	}
	log.Info("refresh: complete",
		zap.String("source", b.Source),
		zap.Int("attempts", attempts),
		zap.Bool("changed", changed),
		zap.Int("stored", stats.Stored),
	)
	return res, nil
}

func refreshMessage(targets, found int, changed bool, attempts, stored int) string {
	switch {
	case targets == 0:
		return fmt.Sprintf("updated %d events", stored)
	case changed:
		return fmt.Sprintf("new values for %d of %d target events after %d attempt(s)", found, targets, attempts)
	default:
		return fmt.Sprintf("no new values after %d attempt(s); stored %d events", attempts, stored)
	}
}

// Filter keeps events on date (compared as a UTC calendar day) whose
// currency is in currencies. An empty currency list keeps all.
func Filter(events []model.Event, date time.Time, currencies []string) []model.Event {
	want := make(map[string]bool, len(currencies))
	for _, c := range currencies {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			want[c] = true
		}
	}
	y, m, d := date.Date()
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		ey, em, ed := e.EventDate.UTC().Date()
		if ey != y || em != m || ed != d {
			continue
		}
		if len(want) > 0 && !want[e.Currency] {
			continue
		}
		out = append(out, e)
	}
	return out
}

func targetMatches(t TargetEvent, e model.Event) bool {
	if t.ExternalID != "" {
		return t.ExternalID == e.ExternalID
	}
	return strings.EqualFold(strings.TrimSpace(t.Currency), e.Currency) &&
		match.BaseNameMatch(t.EventName, e.EventName)
}

func findTargets(events []model.Event, targets []TargetEvent) []model.Event {
	var out []model.Event
	for _, e := range events {
		for _, t := range targets {
			if targetMatches(t, e) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// anyChanged reports whether some found event's actual differs from the
// prior value of a target it matches.
func anyChanged(found []model.Event, targets []TargetEvent) bool {
	for _, e := range found {
		for _, t := range targets {
			if targetMatches(t, e) && e.Actual() != strings.TrimSpace(t.Actual) {
				return true
			}
		}
	}
	return false
}
