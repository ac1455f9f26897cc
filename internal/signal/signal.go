// Package signal computes derived aggregates over a record sequence:
// dataset statistics, momentum and hot-ticker detection, and win-rate /
// average-return measures. All functions are pure and deterministic; where
// an ordering is not otherwise specified, groups follow the input's
// insertion order.
package signal

import (
	"sort"

	"optionsradar/internal/domain"
)

// Stats holds arithmetic summary figures for a record set. Non-numeric or
// missing values count as zero rather than being rejected.
type Stats struct {
	TotalRecords  int     `json:"totalRecords"`
	UniqueTickers int     `json:"uniqueTickers"`
	AvgPCRatio    float64 `json:"avgPCRatio"`
	AvgIVRank     float64 `json:"avgIVRank"`
	HotTickers    int     `json:"hotTickers"`
}

// MomentumTicker is a symbol showing sustained bullish options positioning:
// at least 3 appearances with an average P/C ratio below 0.5.
type MomentumTicker struct {
	Symbol      string  `json:"symbol"`
	Appearances int     `json:"appearances"`
	AvgPC       float64 `json:"avgPC"`
	PriceChange float64 `json:"priceChange"`
	LastPrice   float64 `json:"lastPrice"`
}

// HotTicker is a symbol appearing at unusually high frequency (>=5 times)
// within the 10 most recent distinct dates in the data.
type HotTicker struct {
	Symbol      string  `json:"symbol"`
	Appearances int     `json:"appearances"`
	PriceChange float64 `json:"priceChange"`
	AvgPC       float64 `json:"avgPC"`
	AvgIV       float64 `json:"avgIV"`
	LastPrice   float64 `json:"lastPrice"`
}

const (
	momentumMinAppearances = 3
	momentumMaxAvgPC       = 0.5
	hotMinAppearances      = 5
	hotWindowDates         = 10
)

// ComputeStats summarises a record set. The hot-ticker count here uses
// the full set, not the recent-date window FindHotTickers applies.
func ComputeStats(records []domain.Record) Stats {
	if len(records) == 0 {
		return Stats{}
	}

	unique := make(map[string]int)
	var sumPC, sumIV float64
	for i := range records {
		unique[records[i].Symbol]++
		sumPC += records[i].PCVol
		sumIV += records[i].IVRank
	}

	hot := 0
	for _, n := range unique {
		if n >= hotMinAppearances {
			hot++
		}
	}

	n := float64(len(records))
	return Stats{
		TotalRecords:  len(records),
		UniqueTickers: len(unique),
		AvgPCRatio:    sumPC / n,
		AvgIVRank:     sumIV / n,
		HotTickers:    hot,
	}
}

// groupBySymbol groups record indices by symbol, remembering the order in
// which symbols first appear so results never depend on map iteration.
func groupBySymbol(records []domain.Record) (order []string, groups map[string][]int) {
	groups = make(map[string][]int)
	for i := range records {
		sym := records[i].Symbol
		if _, seen := groups[sym]; !seen {
			order = append(order, sym)
		}
		groups[sym] = append(groups[sym], i)
	}
	return order, groups
}

func priceChangePct(first, last float64) float64 {
	if first <= 0 {
		return 0
	}
	return (last - first) / first * 100
}

// FindMomentumTickers returns symbols with >=3 appearances and an average
// P/C ratio below 0.5, ordered by price change descending. Price change is
// taken from the group's first and last observed price in insertion order;
// callers needing chronological change must pre-sort the input by date.
func FindMomentumTickers(records []domain.Record) []MomentumTicker {
	order, groups := groupBySymbol(records)

	var out []MomentumTicker
	for _, sym := range order {
		idx := groups[sym]
		if len(idx) < momentumMinAppearances {
			continue
		}
		var sumPC float64
		for _, i := range idx {
			sumPC += records[i].PCVol
		}
		avgPC := sumPC / float64(len(idx))
		if avgPC >= momentumMaxAvgPC {
			continue
		}
		first := records[idx[0]].Last
		last := records[idx[len(idx)-1]].Last
		out = append(out, MomentumTicker{
			Symbol:      sym,
			Appearances: len(idx),
			AvgPC:       avgPC,
			PriceChange: priceChangePct(first, last),
			LastPrice:   last,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriceChange > out[j].PriceChange
	})
	return out
}

// recentDates returns the n most recent distinct date strings in the data.
// Dates are normalised to YYYY-MM-DD at parse time, so descending string
// order is descending calendar order.
func recentDates(records []domain.Record, n int) map[string]bool {
	seen := make(map[string]bool)
	var dates []string
	for i := range records {
		d := records[i].Date
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > n {
		dates = dates[:n]
	}

	window := make(map[string]bool, len(dates))
	for _, d := range dates {
		window[d] = true
	}
	return window
}

// FindHotTickers restricts the data to the 10 most recent distinct dates,
// keeps symbols with >=5 appearances in that window, and orders the result
// by appearance count descending. Within each group prices are compared
// after sorting by date ascending.
func FindHotTickers(records []domain.Record) []HotTicker {
	window := recentDates(records, hotWindowDates)

	var recent []domain.Record
	for i := range records {
		if window[records[i].Date] {
			recent = append(recent, records[i])
		}
	}

	order, groups := groupBySymbol(recent)

	var out []HotTicker
	for _, sym := range order {
		idx := groups[sym]
		if len(idx) < hotMinAppearances {
			continue
		}

		sorted := make([]int, len(idx))
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return recent[sorted[a]].Date < recent[sorted[b]].Date
		})

		var sumPC, sumIV float64
		for _, i := range sorted {
			sumPC += recent[i].PCVol
			sumIV += recent[i].IVRank
		}
		first := recent[sorted[0]].Last
		last := recent[sorted[len(sorted)-1]].Last

		out = append(out, HotTicker{
			Symbol:      sym,
			Appearances: len(idx),
			PriceChange: priceChangePct(first, last),
			AvgPC:       sumPC / float64(len(idx)),
			AvgIV:       sumIV / float64(len(idx)),
			LastPrice:   last,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Appearances > out[j].Appearances
	})
	return out
}

// WinRate returns the percentage of records with a strictly positive value
// in the named return column, among records where the column is present and
// parseable. An input with no valid samples yields 0, not an error.
func WinRate(records []domain.Record, field string) float64 {
	var samples, wins int
	for i := range records {
		v, ok := records[i].Float(field)
		if !ok {
			continue
		}
		samples++
		if v > 0 {
			wins++
		}
	}
	if samples == 0 {
		return 0
	}
	return float64(wins) / float64(samples) * 100
}

// AvgReturn returns the arithmetic mean of the named return column over the
// same sample set WinRate uses; 0 when no valid samples exist.
func AvgReturn(records []domain.Record, field string) float64 {
	var samples int
	var sum float64
	for i := range records {
		v, ok := records[i].Float(field)
		if !ok {
			continue
		}
		samples++
		sum += v
	}
	if samples == 0 {
		return 0
	}
	return sum / float64(samples)
}
