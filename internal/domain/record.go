// Package domain defines the canonical record model shared by the parser,
// signal engine, view layer, and stores.
package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is one row of options-market data for one ticker on one date.
// Source files are not schema-enforced, so header aliases are resolved to
// this single shape at parse time; columns that have no canonical home are
// preserved verbatim in Extra.
type Record struct {
	Symbol     string            `json:"symbol"`
	Date       string            `json:"date"` // YYYY-MM-DD once normalized, raw text if unparseable
	Last       float64           `json:"last"`
	Change     float64           `json:"change"`
	PCVol      float64           `json:"pc_vol"`
	OptionsVol int64             `json:"options_vol"`
	IVRank     float64           `json:"iv_rank"` // 0-100 percentage
	Extra      map[string]string `json:"extra,omitempty"`
}

// Canonical column names, in export order.
const (
	ColSymbol     = "Symbol"
	ColDate       = "Date"
	ColLast       = "Last"
	ColChange     = "Change"
	ColPCVol      = "P/C Vol"
	ColOptionsVol = "Options Vol"
	ColIVRank     = "IV Rank"
)

// CanonicalColumns lists the typed columns in their export order.
var CanonicalColumns = []string{
	ColSymbol, ColDate, ColLast, ColChange, ColPCVol, ColOptionsVol, ColIVRank,
}

// aliases maps lowercased source header spellings to canonical columns.
var aliases = map[string]string{
	"symbol":      ColSymbol,
	"ticker":      ColSymbol,
	"date":        ColDate,
	"last":        ColLast,
	"price":       ColLast,
	"change":      ColChange,
	"p/c vol":     ColPCVol,
	"p/c ratio":   ColPCVol,
	"pc_vol":      ColPCVol,
	"options vol": ColOptionsVol,
	"options_vol": ColOptionsVol,
	"iv rank":     ColIVRank,
	"iv_rank":     ColIVRank,
	"iv":          ColIVRank,
}

// CanonicalColumn resolves a source header to its canonical column name,
// or "" when the header is not a recognised alias.
func CanonicalColumn(header string) string {
	return aliases[strings.ToLower(strings.TrimSpace(header))]
}

// dateLayouts are tried in order when normalising the Date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
}

// NormalizeDate converts a source date string to YYYY-MM-DD. Unparseable
// input is returned trimmed but otherwise untouched so the row is not lost.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// NormalizeIVRank converts the inconsistent source conventions (0-1
// fraction, 0-100 percentage, "45%" string) to a 0-100 percentage.
// A trailing % always means percentage; bare values at or below 1.0 are
// treated as fractions. Values above 100 pass through unclamped.
func NormalizeIVRank(raw string) float64 {
	s := strings.TrimSpace(raw)
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if !pct && v >= 0 && v <= 1 {
		return v * 100
	}
	return v
}

func parseFloat(raw string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return v
}

func parseInt(raw string) int64 {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	// Some exports render volumes as floats ("12500.0").
	return int64(parseFloat(s))
}

// FromFields builds a Record from one raw header→value row, resolving
// aliases and normalising dates and IV Rank. Unrecognised columns land in
// Extra; when two aliases of the same column both appear, the first one
// encountered in headers wins.
func FromFields(headers []string, values map[string]string) Record {
	var r Record
	claimed := make(map[string]bool, len(CanonicalColumns))
	for _, h := range headers {
		v := values[h]
		col := CanonicalColumn(h)
		if col == "" {
			if strings.TrimSpace(h) == "" {
				continue
			}
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[strings.TrimSpace(h)] = v
			continue
		}
		if claimed[col] {
			continue
		}
		claimed[col] = true
		switch col {
		case ColSymbol:
			r.Symbol = strings.ToUpper(strings.TrimSpace(v))
		case ColDate:
			r.Date = NormalizeDate(v)
		case ColLast:
			r.Last = parseFloat(v)
		case ColChange:
			r.Change = parseFloat(v)
		case ColPCVol:
			r.PCVol = parseFloat(v)
		case ColOptionsVol:
			r.OptionsVol = parseInt(v)
		case ColIVRank:
			r.IVRank = NormalizeIVRank(v)
		}
	}
	return r
}

// Field returns the string rendering of a column, probing canonical names
// (and their aliases) before Extra. The second result reports presence.
func (r Record) Field(name string) (string, bool) {
	switch col := CanonicalColumn(name); col {
	case ColSymbol:
		return r.Symbol, true
	case ColDate:
		return r.Date, true
	case ColLast:
		return formatFloat(r.Last), true
	case ColChange:
		return formatFloat(r.Change), true
	case ColPCVol:
		return formatFloat(r.PCVol), true
	case ColOptionsVol:
		return strconv.FormatInt(r.OptionsVol, 10), true
	case ColIVRank:
		return formatFloat(r.IVRank), true
	}
	v, ok := r.Extra[name]
	return v, ok
}

// Float returns a column as a number. ok is false when the column is
// absent or does not parse; win-rate and average-return calculations use
// this to skip rows with no valid sample.
func (r Record) Float(name string) (float64, bool) {
	switch CanonicalColumn(name) {
	case ColLast:
		return r.Last, true
	case ColChange:
		return r.Change, true
	case ColPCVol:
		return r.PCVol, true
	case ColOptionsVol:
		return float64(r.OptionsVol), true
	case ColIVRank:
		return r.IVRank, true
	}
	raw, ok := r.Extra[name]
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ExtraColumns returns the record's non-canonical column names, sorted.
func (r Record) ExtraColumns() []string {
	if len(r.Extra) == 0 {
		return nil
	}
	cols := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
