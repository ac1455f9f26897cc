package signal

import (
	"math"
	"testing"

	"optionsradar/internal/domain"
)

func rec(sym, date string, last, pc, iv float64) domain.Record {
	return domain.Record{Symbol: sym, Date: date, Last: last, PCVol: pc, IVRank: iv}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeStats(t *testing.T) {
	records := []domain.Record{
		rec("AAPL", "2024-06-10", 180, 0.4, 60),
		rec("AAPL", "2024-06-11", 182, 0.6, 64),
		rec("TSLA", "2024-06-11", 178, 1.2, 80),
		rec("NVDA", "2024-06-11", 950, 0.2, 92),
	}

	s := ComputeStats(records)
	if s.TotalRecords != 4 {
		t.Errorf("TotalRecords = %d, want 4", s.TotalRecords)
	}
	if s.UniqueTickers != 3 {
		t.Errorf("UniqueTickers = %d, want 3", s.UniqueTickers)
	}
	if !almostEqual(s.AvgPCRatio, 0.6) {
		t.Errorf("AvgPCRatio = %v, want 0.6", s.AvgPCRatio)
	}
	if !almostEqual(s.AvgIVRank, 74) {
		t.Errorf("AvgIVRank = %v, want 74", s.AvgIVRank)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	s := ComputeStats(nil)
	if s != (Stats{}) {
		t.Errorf("ComputeStats(nil) = %+v, want zero Stats", s)
	}
}

func TestFindMomentumTickers(t *testing.T) {
	records := []domain.Record{
		// AAA: 3 appearances, avgPC 0.2, price 100 -> 110.
		rec("AAA", "2024-06-10", 100, 0.2, 50),
		rec("AAA", "2024-06-11", 105, 0.2, 52),
		rec("AAA", "2024-06-12", 110, 0.2, 54),
		// BBB: 3 appearances but avgPC 0.6, excluded.
		rec("BBB", "2024-06-10", 50, 0.6, 40),
		rec("BBB", "2024-06-11", 52, 0.6, 41),
		rec("BBB", "2024-06-12", 54, 0.6, 42),
		// CCC: only 2 appearances, excluded.
		rec("CCC", "2024-06-11", 20, 0.1, 30),
		rec("CCC", "2024-06-12", 25, 0.1, 31),
		// DDD: 3 appearances, avgPC 0.3, price 10 -> 12 (20% change).
		rec("DDD", "2024-06-10", 10, 0.3, 70),
		rec("DDD", "2024-06-11", 11, 0.3, 71),
		rec("DDD", "2024-06-12", 12, 0.3, 72),
	}

	got := FindMomentumTickers(records)
	if len(got) != 2 {
		t.Fatalf("got %d momentum tickers, want 2: %+v", len(got), got)
	}

	// DDD's 20% change outranks AAA's 10%.
	if got[0].Symbol != "DDD" || got[1].Symbol != "AAA" {
		t.Errorf("order = [%s %s], want [DDD AAA]", got[0].Symbol, got[1].Symbol)
	}
	if got[1].Appearances != 3 {
		t.Errorf("AAA appearances = %d, want 3", got[1].Appearances)
	}
	if !almostEqual(got[1].AvgPC, 0.2) {
		t.Errorf("AAA avgPC = %v, want 0.2", got[1].AvgPC)
	}
	if !almostEqual(got[1].PriceChange, 10) {
		t.Errorf("AAA price change = %v, want 10", got[1].PriceChange)
	}
	if got[1].LastPrice != 110 {
		t.Errorf("AAA last price = %v, want 110", got[1].LastPrice)
	}
}

func TestFindMomentumTickersZeroFirstPrice(t *testing.T) {
	records := []domain.Record{
		rec("ZZZ", "2024-06-10", 0, 0.1, 10),
		rec("ZZZ", "2024-06-11", 5, 0.1, 10),
		rec("ZZZ", "2024-06-12", 6, 0.1, 10),
	}

	got := FindMomentumTickers(records)
	if len(got) != 1 {
		t.Fatalf("got %d tickers, want 1", len(got))
	}
	if got[0].PriceChange != 0 {
		t.Errorf("price change with zero first price = %v, want 0", got[0].PriceChange)
	}
}

func TestFindHotTickers(t *testing.T) {
	var records []domain.Record
	days := []string{
		"2024-06-03", "2024-06-04", "2024-06-05", "2024-06-06", "2024-06-07", "2024-06-10",
	}
	// HOT appears on all six days, out of date order to prove the group is
	// re-sorted before the price comparison.
	prices := []float64{100, 102, 104, 106, 108, 110}
	for _, i := range []int{3, 0, 5, 1, 4, 2} {
		records = append(records, rec("HOT", days[i], prices[i], 0.4, 60))
	}
	// COLD appears twice, below the threshold.
	records = append(records,
		rec("COLD", "2024-06-03", 20, 1.0, 30),
		rec("COLD", "2024-06-04", 21, 1.0, 30),
	)

	got := FindHotTickers(records)
	if len(got) != 1 {
		t.Fatalf("got %d hot tickers, want 1: %+v", len(got), got)
	}
	h := got[0]
	if h.Symbol != "HOT" {
		t.Errorf("symbol = %s, want HOT", h.Symbol)
	}
	if h.Appearances != 6 {
		t.Errorf("appearances = %d, want 6", h.Appearances)
	}
	// First price on 2024-06-03 is 100, last on 2024-06-10 is 110.
	if !almostEqual(h.PriceChange, 10) {
		t.Errorf("price change = %v, want 10", h.PriceChange)
	}
	if h.LastPrice != 110 {
		t.Errorf("last price = %v, want 110", h.LastPrice)
	}
}

func TestFindHotTickersDateWindow(t *testing.T) {
	var records []domain.Record
	// OLD appears five times, but only on dates pushed out of the
	// ten-most-recent window by newer data.
	for _, d := range []string{"2024-05-01", "2024-05-02", "2024-05-03", "2024-05-06", "2024-05-07"} {
		records = append(records, rec("OLD", d, 10, 0.5, 50))
	}
	// Ten newer dates, each with a single filler row under its own symbol
	// so none of the fillers crosses the appearance threshold.
	for day := 10; day < 20; day++ {
		records = append(records, rec("F"+itoa2(day), "2024-06-"+itoa2(day), 1, 1, 1))
	}

	got := FindHotTickers(records)
	if len(got) != 0 {
		t.Errorf("expected no hot tickers outside the recent-date window, got %+v", got)
	}
}

func itoa2(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

func TestWinRate(t *testing.T) {
	records := []domain.Record{
		{Symbol: "A", Extra: map[string]string{"Return_10d": "5"}},
		{Symbol: "B", Extra: map[string]string{"Return_10d": "-3"}},
		{Symbol: "C", Extra: map[string]string{"Return_10d": "2"}},
		{Symbol: "D"},
		{Symbol: "E", Extra: map[string]string{"Return_10d": "junk"}},
	}

	got := WinRate(records, "Return_10d")
	want := 2.0 / 3.0 * 100
	if !almostEqual(got, want) {
		t.Errorf("WinRate = %v, want %v", got, want)
	}
}

func TestWinRateNoSamples(t *testing.T) {
	if got := WinRate(nil, "Return_10d"); got != 0 {
		t.Errorf("WinRate(nil) = %v, want 0", got)
	}
	records := []domain.Record{{Symbol: "A"}}
	if got := WinRate(records, "Return_10d"); got != 0 {
		t.Errorf("WinRate with no valid samples = %v, want 0", got)
	}
}

func TestAvgReturn(t *testing.T) {
	records := []domain.Record{
		{Symbol: "A", Extra: map[string]string{"Return_10d": "6"}},
		{Symbol: "B", Extra: map[string]string{"Return_10d": "-2"}},
		{Symbol: "C"},
	}

	if got := AvgReturn(records, "Return_10d"); !almostEqual(got, 2) {
		t.Errorf("AvgReturn = %v, want 2", got)
	}
	if got := AvgReturn(nil, "Return_10d"); got != 0 {
		t.Errorf("AvgReturn(nil) = %v, want 0", got)
	}
}
