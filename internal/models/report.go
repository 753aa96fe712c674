package models

import "time"

// FailureKind classifies why a Target produced no ProductRecord.
type FailureKind string

const (
	FailSessionUnavailable FailureKind = "session_unavailable"
	FailNavigationTimeout  FailureKind = "navigation_timeout"
	FailConnection         FailureKind = "connection_error"
	FailNotFound           FailureKind = "not_found"
)

// FailureRecord pairs the original input identifier with the failure kind.
// A Target yields either a ProductRecord or a FailureRecord, never both.
type FailureRecord struct {
	Input string      `json:"input"`
	Kind  FailureKind `json:"error_kind"`
}

// Report is the aggregate outcome of one batch run. Results preserve the
// submission order of their Targets. Not-found SKU searches are counted in
// Skipped but appear in neither list.
type Report struct {
	Results  []*ProductRecord `json:"results"`
	Failures []FailureRecord  `json:"failures"`
	Skipped  int              `json:"skipped"`
	Started  time.Time        `json:"started"`
	Finished time.Time        `json:"finished"`
}

func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
