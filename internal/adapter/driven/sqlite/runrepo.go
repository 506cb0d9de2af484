package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SyncRunStore = (*RunRepo)(nil)

// RunRepo is the SQLite implementation of the SyncRunStore port.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// SaveRun writes the summary and its ordered outcomes in a single
// transaction and returns the assigned run id.
func (r *RunRepo) SaveRun(ctx context.Context, run model.RunSummary) (int64, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save run: %w", err)
	}
	defer tx.Rollback()

	const insertRun = `
		INSERT INTO sync_runs (started_at, finished_at, no_records, succeeded, failed, skipped_no_email, skipped_duplicate)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insertRun,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		boolToInt(run.NoRecords),
		run.Succeeded,
		run.Failed,
		run.SkippedNoEmail,
		run.SkippedDuplicate,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	const insertRecord = `
		INSERT INTO sync_run_records (run_id, position, email, first_name, last_name, outcome, contact_id, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, o := range run.Outcomes {
		if _, err := tx.ExecContext(ctx, insertRecord,
			runID, o.Position, o.Email, o.FirstName, o.LastName, string(o.Outcome), o.ContactID, o.Detail,
		); err != nil {
			return 0, fmt.Errorf("insert run record %d: %w", o.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save run: %w", err)
	}
	return runID, nil
}

// RecentRuns returns up to limit runs, newest first, with outcomes populated
// in source order.
func (r *RunRepo) RecentRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	const query = `
		SELECT id, started_at, finished_at, no_records, succeeded, failed, skipped_no_email, skipped_duplicate
		FROM sync_runs ORDER BY id DESC LIMIT ?`
	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var run model.RunSummary
		var started, finished string
		var noRecords int
		if err := rows.Scan(&run.ID, &started, &finished, &noRecords,
			&run.Succeeded, &run.Failed, &run.SkippedNoEmail, &run.SkippedDuplicate); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse started_at for run %d: %w", run.ID, err)
		}
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("parse finished_at for run %d: %w", run.ID, err)
		}
		run.NoRecords = noRecords != 0

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		outcomes, err := r.outcomesForRun(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Outcomes = outcomes
	}
	return runs, nil
}

// outcomesForRun loads per-record outcomes for one run in position order.
func (r *RunRepo) outcomesForRun(ctx context.Context, runID int64) ([]model.RecordOutcome, error) {
	const query = `
		SELECT position, email, first_name, last_name, outcome, contact_id, detail
		FROM sync_run_records WHERE run_id = ? ORDER BY position`
	rows, err := r.db.Reader.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list run records for run %d: %w", runID, err)
	}
	defer rows.Close()

	var outcomes []model.RecordOutcome
	for rows.Next() {
		var o model.RecordOutcome
		var outcome string
		if err := rows.Scan(&o.Position, &o.Email, &o.FirstName, &o.LastName, &outcome, &o.ContactID, &o.Detail); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		o.Outcome = model.Outcome(outcome)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run records: %w", err)
	}
	return outcomes, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
