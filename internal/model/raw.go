package model

import "time"

// ResultHint is the parser's reading of a source's colour or phrase marker
// next to an actual value.
type ResultHint string

const (
	HintNone    ResultHint = ""
	HintBetter  ResultHint = "better"
	HintWorse   ResultHint = "worse"
	HintAsExpec ResultHint = "as_expected"
)

// RawEvent is one row extracted by a format parser. Every field has a
// definite type; absent strings are empty and an absent time is nil.
type RawEvent struct {
	Source string
	Layout string

	Currency       string
	Name           string
	Impact         Impact
	ImpactExplicit bool

	Actual   string
	Forecast string
	Previous string

	// Time is set when the row carried a machine-readable timestamp or a
	// parseable date text.
	Time     *time.Time
	DateText string

	// NativeID is the source's own identifier for the row, if any.
	NativeID   string
	DetailPath string
	ResultHint ResultHint
}

// HasValues reports whether any of actual/forecast/previous is present.
func (r *RawEvent) HasValues() bool {
	return r.Actual != "" || r.Forecast != "" || r.Previous != ""
}
