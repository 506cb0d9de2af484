package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

// TokenProvider is the slice of the token lifecycle the orchestrator needs.
type TokenProvider interface {
	GetValidAccessToken(ctx context.Context) (string, error)
}

// Uploader is the per-record pipeline.
type Uploader interface {
	Upload(ctx context.Context, rec model.ContactRecord, token string) model.RecordOutcome
}

// SyncService drives the record source through the upload pipeline, one
// record at a time in source order. Serial processing is deliberate: the
// remote enforces rate limits, and concurrent uploads referencing the same
// new company name would race the search-then-create sequence.
type SyncService struct {
	source   driven.RecordSource
	tokens   TokenProvider
	uploader Uploader
	runs     driven.SyncRunStore // optional; nil disables run history

	now func() time.Time
}

// NewSyncService creates a SyncService. runs may be nil.
func NewSyncService(source driven.RecordSource, tokens TokenProvider, uploader Uploader, runs driven.SyncRunStore) *SyncService {
	return &SyncService{
		source:   source,
		tokens:   tokens,
		uploader: uploader,
		runs:     runs,
		now:      time.Now,
	}
}

// SyncAll reads the full record set once and uploads each record in order.
// An empty source is not an error: it returns a summary with NoRecords set,
// without touching the token or the remote API. Only authentication failures
// abort a run; every per-record failure is isolated to its record.
func (s *SyncService) SyncAll(ctx context.Context) (*model.RunSummary, error) {
	summary := &model.RunSummary{StartedAt: s.now()}

	records, err := s.source.ReadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	if len(records) == 0 {
		summary.NoRecords = true
		summary.FinishedAt = s.now()
		slog.Info("sync skipped, record source is empty")
		s.persist(ctx, summary)
		return summary, nil
	}

	token, err := s.tokens.GetValidAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("sync started", "records", len(records))

	for i, rec := range records {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		outcome := s.uploader.Upload(ctx, rec, token)
		outcome.Position = i
		summary.Outcomes = append(summary.Outcomes, outcome)
		summary.Count(outcome.Outcome)
	}

	summary.FinishedAt = s.now()
	slog.Info("sync complete",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped_no_email", summary.SkippedNoEmail,
		"skipped_duplicate", summary.SkippedDuplicate,
		"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
	)

	s.persist(ctx, summary)
	return summary, nil
}

// persist saves the run for the status page. A store failure is logged and
// swallowed; history is best-effort.
func (s *SyncService) persist(ctx context.Context, summary *model.RunSummary) {
	if s.runs == nil {
		return
	}
	id, err := s.runs.SaveRun(ctx, *summary)
	if err != nil {
		slog.Error("persist run failed", "error", err)
		return
	}
	summary.ID = id
}
