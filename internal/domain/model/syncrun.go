package model

import "time"

// Outcome classifies what happened to a single record during a sync run.
type Outcome string

const (
	OutcomeCreated          Outcome = "created"
	OutcomeSkippedNoEmail   Outcome = "skipped_no_email"
	OutcomeSkippedDuplicate Outcome = "skipped_duplicate"
	OutcomeFailed           Outcome = "failed"
)

// RecordOutcome is the per-record result, kept in source order.
type RecordOutcome struct {
	Position  int
	Email     string
	FirstName string
	LastName  string
	Outcome   Outcome
	// ContactID is set only when the record was created remotely.
	ContactID string
	// Detail carries a short failure or skip reason for display.
	Detail string
}

// RunSummary aggregates one sync run. NoRecords distinguishes an empty
// source from a run that processed records; it is not an error.
type RunSummary struct {
	ID               int64
	StartedAt        time.Time
	FinishedAt       time.Time
	NoRecords        bool
	Succeeded        int
	Failed           int
	SkippedNoEmail   int
	SkippedDuplicate int
	Outcomes         []RecordOutcome
}

// Count folds one outcome into the summary totals.
func (s *RunSummary) Count(o Outcome) {
	switch o {
	case OutcomeCreated:
		s.Succeeded++
	case OutcomeSkippedNoEmail:
		s.SkippedNoEmail++
	case OutcomeSkippedDuplicate:
		s.SkippedDuplicate++
	case OutcomeFailed:
		s.Failed++
	}
}
