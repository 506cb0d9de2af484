package driven

import (
	"context"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
)

// RecordSource yields the ordered sequence of contact records to sync.
// The first row of the underlying tabular data is the header row; records
// are keyed by header name. An empty source returns an empty slice, not an
// error.
type RecordSource interface {
	ReadRecords(ctx context.Context) ([]model.ContactRecord, error)
}
