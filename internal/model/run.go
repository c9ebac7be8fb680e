package model

import "time"

// RunStatus represents the outcome of one ingest invocation.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunKind names the entry point that started an invocation.
type RunKind string

const (
	RunKindBootstrap RunKind = "bootstrap"
	RunKindParse     RunKind = "parse"
	RunKindRefresh   RunKind = "refresh"
)

// Run records one pipeline invocation and its counters.
type Run struct {
	ID         string     `json:"id"`
	Kind       RunKind    `json:"kind"`
	Source     string     `json:"source,omitempty"`
	Status     RunStatus  `json:"status"`
	Result     *RunResult `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunResult holds the counters reported by an invocation.
type RunResult struct {
	Parsed   int   `json:"parsed"`
	Stored   int   `json:"stored"`
	Existing int   `json:"existing"`
	Affected int64 `json:"affected"`
	Failed   int   `json:"failed"`
	Attempts int   `json:"attempts,omitempty"`
}
