// Package csvfile implements the RecordSource port on a local CSV file,
// mainly for offline runs and testing against fixture data.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RecordSource = (*Source)(nil)

// Source reads a CSV file with the same header-row contract as the sheet
// source: first row names the fields, each following row is one record.
type Source struct {
	path string
}

// NewSource creates a Source for the given file path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// ReadRecords parses the whole file. An empty file or a header-only file
// yields an empty slice.
func (s *Source) ReadRecords(_ context.Context) ([]model.ContactRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", s.path, err)
	}
	defer f.Close()

	records, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", s.path, err)
	}
	return records, nil
}

// parse reads header + rows from r. Ragged rows are tolerated: short rows
// pad with empty strings, long rows drop the extra cells.
func parse(r io.Reader) ([]model.ContactRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return []model.ContactRecord{}, nil
	}

	headers := rows[0]
	records := make([]model.ContactRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(model.ContactRecord, len(headers))
		for i, header := range headers {
			header = strings.TrimSpace(header)
			if header == "" {
				continue
			}
			if i < len(row) {
				rec[header] = strings.TrimSpace(row[i])
			} else {
				rec[header] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
