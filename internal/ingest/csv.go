package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// RequiredColumns must all be present in the header of an import file.
var RequiredColumns = []string{"title", "library", "language", "status"}

var ErrEmptyFile = errors.New("file has no header row")

// FileError is a problem with an uploaded file as a whole; no row of it was processed.
type FileError struct {
	Err error
}

func (e *FileError) Error() string {
	return e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}

type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Columns, ", ")
}

// Row is one data line of a sheet. Empty lines are skipped; a line of bare separators is a row.
type Row struct {
	// N is the 1-based position of the row among the data rows; the header is not counted.
	N      int
	fields map[string]string
}

func NewRow(n int, fields map[string]string) Row {
	norm := make(map[string]string, len(fields))
	for k, v := range fields {
		norm[normalizeHeader(k)] = v
	}

	return Row{N: n, fields: norm}
}

// Raw returns the value of column exactly as it appeared in the file.
func (r Row) Raw(column string) string {
	return r.fields[column]
}

// Value returns the trimmed value of column, "" when absent.
func (r Row) Value(column string) string {
	return strings.TrimSpace(r.fields[column])
}

func (r Row) Has(column string) bool {
	_, ok := r.fields[column]
	return ok
}

type Sheet struct {
	Header []string
	Rows   []Row
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// ReadSheet parses a whole CSV file. Any syntax error rejects the file.
// A UTF-8 byte-order mark is dropped before parsing, so quoted headers written after one still parse.
func ReadSheet(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("could not parse CSV: %w", err)
	}

	sheet := &Sheet{Header: make([]string, len(header))}
	for i, h := range header {
		sheet.Header[i] = normalizeHeader(h)
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not parse CSV: %w", err)
		}

		fields := make(map[string]string, len(sheet.Header))
		for i, h := range sheet.Header {
			if i >= len(record) {
				break
			}
			if _, dup := fields[h]; dup {
				continue
			}
			fields[h] = record[i]
		}

		sheet.Rows = append(sheet.Rows, Row{N: len(sheet.Rows) + 1, fields: fields})
	}

	return sheet, nil
}

func (s *Sheet) HasColumn(column string) bool {
	for _, h := range s.Header {
		if h == column {
			return true
		}
	}

	return false
}

// Require returns a *MissingColumnsError naming every absent column.
func (s *Sheet) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !s.HasColumn(c) {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}

	return nil
}
