package driven

import (
	"context"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
)

// SyncRunStore persists completed run summaries with their ordered
// per-record outcomes. SaveRun writes the summary and all outcomes in one
// transaction and returns the assigned run id.
type SyncRunStore interface {
	SaveRun(ctx context.Context, run model.RunSummary) (int64, error)
	// RecentRuns returns up to limit runs, newest first, with outcomes
	// populated.
	RecentRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
}
