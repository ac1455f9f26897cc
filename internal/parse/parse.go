// Package parse converts uploaded CSV and spreadsheet files into canonical
// record sequences. Parsing is a pure transform: the caller decides whether
// the result is merged into the persisted dataset.
package parse

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"optionsradar/internal/domain"
)

// Format identifies a supported upload file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatWorkbook
)

// ParseError reports a malformed or empty upload, or one missing required
// columns. It aborts the upload; no partial merge occurs.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse: " + e.Reason
}

// Detect maps a file name to its upload format by extension.
func Detect(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".xlsx", ".xls":
		return FormatWorkbook
	}
	return FormatUnknown
}

// File parses the file at path, choosing the format from its extension.
func File(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch Detect(path) {
	case FormatCSV:
		return CSV(f)
	case FormatWorkbook:
		return Workbook(f)
	}
	return nil, &ParseError{Reason: fmt.Sprintf("unsupported file type %q", filepath.Ext(path))}
}

// CSV parses a comma-separated upload. The first row is the header row;
// quoting follows RFC 4180, so exported values containing commas, quotes,
// or newlines survive a round trip. Rows shorter than the header are padded
// with empty strings; blank lines are skipped.
func CSV(r io.Reader) ([]domain.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("reading CSV: %v", err)}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Reason: "file is empty"}
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	var records []domain.Record
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		records = append(records, rowToRecord(headers, row))
	}

	return validate(records, headers)
}

// Workbook parses the first sheet of an Excel workbook, using row 1 as the
// header row.
func Workbook(r io.Reader) ([]domain.Record, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("reading workbook: %v", err)}
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Reason: "workbook has no sheets"}
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("reading sheet %q: %v", sheets[0], err)}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Reason: "file is empty"}
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	var records []domain.Record
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		records = append(records, rowToRecord(headers, row))
	}

	return validate(records, headers)
}

// rowToRecord zips a data row against the headers positionally. Missing
// trailing values default to the empty string.
func rowToRecord(headers, row []string) domain.Record {
	values := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(row) {
			values[h] = strings.TrimSpace(row[i])
		} else {
			values[h] = ""
		}
	}
	return domain.FromFields(headers, values)
}

// validate rejects empty results and uploads whose header set lacks the
// required Symbol and Last columns (under any recognised alias).
func validate(records []domain.Record, headers []string) ([]domain.Record, error) {
	if len(records) == 0 {
		return nil, &ParseError{Reason: "no data rows found"}
	}

	var hasSymbol, hasLast bool
	for _, h := range headers {
		switch domain.CanonicalColumn(h) {
		case domain.ColSymbol:
			hasSymbol = true
		case domain.ColLast:
			hasLast = true
		}
	}
	if !hasSymbol || !hasLast {
		return nil, &ParseError{Reason: "required columns Symbol and Last not found"}
	}

	return records, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
