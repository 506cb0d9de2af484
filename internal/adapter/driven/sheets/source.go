// Package sheets implements the RecordSource port on a Google Sheets tab.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RecordSource = (*Source)(nil)

// Source reads one sheet tab. The first row is the header row; every data
// row becomes a record keyed by header name, short rows padded with empty
// strings.
type Source struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	readRange     string
}

// NewSource creates a Source authenticated with the given service account
// credentials file (application default credentials when empty).
func NewSource(ctx context.Context, spreadsheetID, sheetName, credentialsFile string) (*Source, error) {
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return NewSourceWithService(svc, spreadsheetID, sheetName), nil
}

// NewSourceWithService creates a Source with a prebuilt sheets service.
// Intended for testing with an httptest-backed service.
func NewSourceWithService(svc *sheetsapi.Service, spreadsheetID, sheetName string) *Source {
	return &Source{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		readRange:     sheetName,
	}
}

// ReadRecords fetches the whole tab and converts it to records.
func (s *Source) ReadRecords(ctx context.Context) ([]model.ContactRecord, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s!%s: %w", s.spreadsheetID, s.readRange, err)
	}
	return RecordsFromRows(resp.Values), nil
}

// RecordsFromRows converts a header row plus data rows into records. Cells
// beyond the header width are dropped; missing trailing cells become empty
// strings. A sheet with no data rows yields an empty slice.
func RecordsFromRows(rows [][]any) []model.ContactRecord {
	if len(rows) < 2 {
		return []model.ContactRecord{}
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(cellString(h))
	}

	records := make([]model.ContactRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(model.ContactRecord, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(row) {
				rec[header] = strings.TrimSpace(cellString(row[i]))
			} else {
				rec[header] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

// cellString renders a sheet cell value. The API returns strings for
// formatted values, but unformatted numbers come through as float64 and must
// not pick up exponent notation.
func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return fmt.Sprint(c)
	}
}
