package model

import (
	"strings"
	"time"
)

// Impact is the qualitative severity of an economic event.
type Impact string

const (
	ImpactHigh   Impact = "High"
	ImpactMedium Impact = "Medium"
	ImpactLow    Impact = "Low"
)

// ParseImpact maps loose severity labels to an Impact. Unrecognized input
// yields ImpactLow and ok=false.
func ParseImpact(s string) (Impact, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "red", "3", "bull3":
		return ImpactHigh, true
	case "medium", "med", "moderate", "orange", "ora", "2", "bull2":
		return ImpactMedium, true
	case "low", "yellow", "yel", "1", "bull1":
		return ImpactLow, true
	}
	return ImpactLow, false
}

// Valid reports whether i is one of the defined levels.
func (i Impact) Valid() bool {
	switch i {
	case ImpactHigh, ImpactMedium, ImpactLow:
		return true
	}
	return false
}

// ResultType describes whether an actual figure was favorable.
// The empty value means undeterminable.
type ResultType string

const (
	ResultGood    ResultType = "good"
	ResultBad     ResultType = "bad"
	ResultNeutral ResultType = "neutral"
	ResultUnknown ResultType = ""
)

// Known reports whether r carries a classification.
func (r ResultType) Known() bool {
	return r == ResultGood || r == ResultBad || r == ResultNeutral
}

// Event is the canonical economic calendar record, keyed by ExternalID.
// Nullable columns are pointers so that merge-upserts can tell "absent"
// apart from "empty".
type Event struct {
	ExternalID       string     `json:"external_id"`
	Currency         string     `json:"currency"`
	Country          *string    `json:"country"`
	FlagCode         *string    `json:"flag_code"`
	EventName        string     `json:"event_name"`
	Impact           Impact     `json:"impact"`
	EventDate        time.Time  `json:"event_date"`
	TimeUTC          *time.Time `json:"time_utc"`
	UnixTimestamp    *int64     `json:"unix_timestamp"`
	ActualValue      *string    `json:"actual_value"`
	ForecastValue    *string    `json:"forecast_value"`
	PreviousValue    *string    `json:"previous_value"`
	ActualResultType ResultType `json:"actual_result_type"`
	DataSource       string     `json:"data_source"`
	SourceURL        *string    `json:"source_url"`
	LastUpdated      time.Time  `json:"last_updated"`
}

// Actual returns the actual value or "".
func (e *Event) Actual() string { return deref(e.ActualValue) }

// Forecast returns the forecast value or "".
func (e *Event) Forecast() string { return deref(e.ForecastValue) }

// Previous returns the previous value or "".
func (e *Event) Previous() string { return deref(e.PreviousValue) }

// Age returns how long ago the row was last refreshed relative to now.
func (e *Event) Age(now time.Time) time.Duration {
	return now.Sub(e.LastUpdated)
}

// StringPtr returns nil for blank strings and a pointer to the trimmed value
// otherwise.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
