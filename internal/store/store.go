// Package store persists canonical economic events and ingest runs.
package store

import (
	"context"
	"time"

	"github.com/sells-group/econ-calendar/internal/model"
)

// EventFilter narrows ListEvents.
type EventFilter struct {
	Date       time.Time `json:"date"`
	Currencies []string  `json:"currencies,omitempty"`
}

// Store defines the persistence interface for the event pipeline. Writes
// are merge-upserts keyed by external_id: a NULL incoming column keeps the
// stored value, everything else is last-write-wins.
type Store interface {
	// Events
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	UpsertEvents(ctx context.Context, events []model.Event) (int64, error)
	History(ctx context.Context, pairs []model.PairKey) ([]model.Event, error)
	FindEvent(ctx context.Context, name, currency string) (*model.Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]model.Event, error)
	CountEvents(ctx context.Context) (int64, error)

	// Runs
	CreateRun(ctx context.Context, kind model.RunKind, source string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, result *model.RunResult, runErr error) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// eventColumns is the column order shared by inserts and selects.
var eventColumns = []string{
	"external_id", "currency", "country", "flag_code", "event_name", "impact",
	"event_date", "time_utc", "unix_timestamp", "actual_value", "forecast_value",
	"previous_value", "actual_result_type", "data_source", "source_url", "last_updated",
}

const eventSelect = `SELECT external_id, currency, country, flag_code, event_name, impact,
	event_date, time_utc, unix_timestamp, actual_value, forecast_value,
	previous_value, actual_result_type, data_source, source_url, last_updated
FROM economic_events`

// eventRow flattens an event into eventColumns order. An unknown result type
// is written as NULL so it never erases a stored classification.
func eventRow(e model.Event) []any {
	var resultType *string
	if e.ActualResultType.Known() {
		s := string(e.ActualResultType)
		resultType = &s
	}
	return []any{
		e.ExternalID, e.Currency, e.Country, e.FlagCode, e.EventName, string(e.Impact),
		e.EventDate.UTC(), e.TimeUTC, e.UnixTimestamp, e.ActualValue, e.ForecastValue,
		e.PreviousValue, resultType, e.DataSource, e.SourceURL, e.LastUpdated.UTC(),
	}
}

// scanner is satisfied by pgx.Row, pgx.Rows and *sql.Row(s).
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (model.Event, error) {
	var (
		e          model.Event
		impact     string
		resultType *string
	)
	err := row.Scan(
		&e.ExternalID, &e.Currency, &e.Country, &e.FlagCode, &e.EventName, &impact,
		&e.EventDate, &e.TimeUTC, &e.UnixTimestamp, &e.ActualValue, &e.ForecastValue,
		&e.PreviousValue, &resultType, &e.DataSource, &e.SourceURL, &e.LastUpdated,
	)
	if err != nil {
		return e, err
	}
	e.Impact, _ = model.ParseImpact(impact)
	if resultType != nil {
		e.ActualResultType = model.ResultType(*resultType)
	}
	e.EventDate = e.EventDate.UTC()
	e.LastUpdated = e.LastUpdated.UTC()
	if e.TimeUTC != nil {
		t := e.TimeUTC.UTC()
		e.TimeUTC = &t
	}
	return e, nil
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
