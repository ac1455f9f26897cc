package app

import (
	"bytes"
	"encoding/csv"

	"optionsradar/internal/domain"
)

// ExportCSV renders a record sequence as text/csv: canonical columns first,
// then the first record's extra columns in sorted order. Embedded commas
// and quotes are double-quote escaped. The export re-parses to the same
// records only when every record carries the same extra columns; a record
// missing one of the first record's extras re-imports with that column
// present but empty.
func ExportCSV(records []domain.Record) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	headers := append([]string(nil), domain.CanonicalColumns...)
	if len(records) > 0 {
		headers = append(headers, records[0].ExtraColumns()...)
	}
	w.Write(headers)

	row := make([]string, len(headers))
	for _, r := range records {
		for i, h := range headers {
			row[i], _ = r.Field(h)
		}
		w.Write(row)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil
	}
	return buf.Bytes()
}

// ExportWatchlist renders the watchlist as a text/csv download.
func (a *App) ExportWatchlist() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"Symbol", "Notes", "Added At"})
	for _, e := range a.watchlist {
		w.Write([]string{e.Symbol, e.Notes, e.AddedAt.Format("2006-01-02T15:04:05Z07:00")})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil
	}
	return buf.Bytes()
}
