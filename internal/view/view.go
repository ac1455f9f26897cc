// Package view maintains the filtered, sorted, paginated table state over a
// record set. The visible page is always derived fresh from the filter, the
// sort, and the page cursor, so filter changes can never leave a stale page
// behind.
package view

import (
	"sort"
	"strconv"
	"strings"

	"optionsradar/internal/domain"
)

// Direction is a sort direction.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

// Filter holds the optional predicates applied to the dataset. Nil numeric
// bounds and empty strings mean "no constraint".
type Filter struct {
	Symbol   string
	DateFrom string
	DateTo   string
	PCMin    *float64
	PCMax    *float64
	IVMin    *float64
	IVMax    *float64
}

// Zero reports whether the filter constrains nothing.
func (f Filter) Zero() bool {
	return f.Symbol == "" && f.DateFrom == "" && f.DateTo == "" &&
		f.PCMin == nil && f.PCMax == nil && f.IVMin == nil && f.IVMax == nil
}

// Match applies the filter to a single record.
func (f Filter) Match(r domain.Record) bool {
	if f.Symbol != "" && !strings.Contains(r.Symbol, strings.ToUpper(f.Symbol)) {
		return false
	}
	if f.DateFrom != "" && r.Date < domain.NormalizeDate(f.DateFrom) {
		return false
	}
	if f.DateTo != "" && r.Date > domain.NormalizeDate(f.DateTo) {
		return false
	}
	if f.PCMin != nil && r.PCVol < *f.PCMin {
		return false
	}
	if f.PCMax != nil && r.PCVol > *f.PCMax {
		return false
	}
	if f.IVMin != nil && r.IVRank < *f.IVMin {
		return false
	}
	if f.IVMax != nil && r.IVRank > *f.IVMax {
		return false
	}
	return true
}

// DefaultPageSize is the table's default rows-per-page.
const DefaultPageSize = 50

// pageWindow caps how many leading page numbers are rendered before the
// ellipsis and jump-to-last control.
const pageWindow = 5

// State is the view state machine: one filter, one sort key/direction, one
// page cursor. It is not safe for concurrent use; the owning App serialises
// access.
type State struct {
	data     []domain.Record
	filter   Filter
	sortCol  string
	sortDir  Direction
	page     int
	pageSize int
}

// NewState creates a view over the given records sorted by Date
// descending, on page 1 with no filter.
func NewState(data []domain.Record, pageSize int) *State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &State{
		data:     data,
		sortCol:  domain.ColDate,
		sortDir:  Descending,
		page:     1,
		pageSize: pageSize,
	}
}

// SetData replaces the underlying dataset snapshot after a mutation,
// keeping the current filter and sort but resetting to page 1.
func (s *State) SetData(data []domain.Record) {
	s.data = data
	s.page = 1
}

// ApplyFilter replaces the active filter and resets to page 1.
func (s *State) ApplyFilter(f Filter) {
	s.filter = f
	s.page = 1
}

// ResetFilter clears all predicates and resets to page 1.
func (s *State) ResetFilter() {
	s.filter = Filter{}
	s.page = 1
}

// Sort toggles direction when column is already the sort key, otherwise
// selects the new key with direction defaulting to descending. Either way
// the page resets to 1.
func (s *State) Sort(column string) {
	if s.sortCol == column {
		if s.sortDir == Ascending {
			s.sortDir = Descending
		} else {
			s.sortDir = Ascending
		}
	} else {
		s.sortCol = column
		s.sortDir = Descending
	}
	s.page = 1
}

// SetSort selects an explicit sort key and direction, for callers that
// carry both (query parameters) rather than toggling. Resets to page 1.
func (s *State) SetSort(column string, dir Direction) {
	s.sortCol = column
	s.sortDir = dir
	s.page = 1
}

// SortKey returns the current sort column and direction.
func (s *State) SortKey() (string, Direction) {
	return s.sortCol, s.sortDir
}

// Page returns the current page number.
func (s *State) Page() int { return s.page }

// PageSize returns the page size.
func (s *State) PageSize() int { return s.pageSize }

// SetPage moves to page n. Out-of-range requests, including page 0 and
// pages beyond the last, are rejected as no-ops.
func (s *State) SetPage(n int) {
	if n < 1 || n > s.TotalPages() {
		return
	}
	s.page = n
}

// filtered returns the records passing the active filter, in dataset order.
func (s *State) filtered() []domain.Record {
	if s.filter.Zero() {
		return s.data
	}
	var out []domain.Record
	for i := range s.data {
		if s.filter.Match(s.data[i]) {
			out = append(out, s.data[i])
		}
	}
	return out
}

// Filtered returns a copy of the records passing the active filter, in
// dataset order, for bulk operations such as CSV export.
func (s *State) Filtered() []domain.Record {
	rows := s.filtered()
	out := make([]domain.Record, len(rows))
	copy(out, rows)
	return out
}

// FilteredCount returns how many records pass the active filter.
func (s *State) FilteredCount() int {
	return len(s.filtered())
}

// TotalCount returns the size of the underlying dataset.
func (s *State) TotalCount() int {
	return len(s.data)
}

// TotalPages returns ceil(filteredCount/pageSize), minimum 1.
func (s *State) TotalPages() int {
	n := (s.FilteredCount() + s.pageSize - 1) / s.pageSize
	if n < 1 {
		n = 1
	}
	return n
}

// Visible recomputes the currently visible slice:
// sort(filter(dataset))[(page-1)*size : page*size].
func (s *State) Visible() []domain.Record {
	rows := s.filtered()
	sorted := make([]domain.Record, len(rows))
	copy(sorted, rows)
	sortRecords(sorted, s.sortCol, s.sortDir)

	start := (s.page - 1) * s.pageSize
	if start >= len(sorted) {
		return nil
	}
	end := start + s.pageSize
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[start:end]
}

// Ellipsis marks the gap in a capped page-number list.
const Ellipsis = -1

// PageNumbers returns the page entries to render: at most 5 leading pages,
// then an ellipsis marker and the last page when more exist. A single page
// renders nothing.
func (s *State) PageNumbers() []int {
	total := s.TotalPages()
	if total <= 1 {
		return nil
	}
	if total <= pageWindow {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}
	pages := make([]int, 0, pageWindow+2)
	for i := 1; i <= pageWindow; i++ {
		pages = append(pages, i)
	}
	return append(pages, Ellipsis, total)
}

// sortRecords orders records by column with field-appropriate comparison:
// dates for the Date column, numeric when both values parse as numbers,
// lexical otherwise. Ties keep the input order.
func sortRecords(records []domain.Record, column string, dir Direction) {
	col := domain.CanonicalColumn(column)
	sort.SliceStable(records, func(i, j int) bool {
		less := recordLess(records[i], records[j], column, col)
		if dir == Ascending {
			return less
		}
		return !less && !recordEqual(records[i], records[j], column, col)
	})
}

func recordLess(a, b domain.Record, column, col string) bool {
	if col == domain.ColDate {
		return a.Date < b.Date
	}
	av, aok := a.Field(column)
	bv, bok := b.Field(column)
	if !aok || !bok {
		return aok && !bok
	}
	af, aerr := strconv.ParseFloat(av, 64)
	bf, berr := strconv.ParseFloat(bv, 64)
	if aerr == nil && berr == nil {
		return af < bf
	}
	return av < bv
}

func recordEqual(a, b domain.Record, column, col string) bool {
	if col == domain.ColDate {
		return a.Date == b.Date
	}
	av, _ := a.Field(column)
	bv, _ := b.Field(column)
	return av == bv
}
