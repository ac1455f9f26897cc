// Package httpapi provides the HTTP JSON API the dashboard front end
// consumes: record pages, derived signals, uploads, watchlist, and journal.
package httpapi

import (
	"optionsradar/internal/app"
	"optionsradar/internal/domain"
	"optionsradar/internal/signal"
)

// PageResponse is one visible table page plus its pagination block.
type PageResponse struct {
	Records     []domain.Record `json:"records"`
	Page        int             `json:"page"`
	PageSize    int             `json:"pageSize"`
	TotalPages  int             `json:"totalPages"`
	Filtered    int             `json:"filtered"`
	Total       int             `json:"total"`
	PageNumbers []int           `json:"pageNumbers"` // -1 marks the ellipsis
	SortColumn  string          `json:"sortColumn"`
	SortDir     string          `json:"sortDir"`
}

// StatsResponse wraps the dataset summary with the last-update stamp.
type StatsResponse struct {
	Stats      signal.Stats `json:"stats"`
	LastUpdate string       `json:"lastUpdate,omitempty"`
}

// SignalsResponse carries both derived signal lists.
type SignalsResponse struct {
	Momentum []signal.MomentumTicker `json:"momentum"`
	Hot      []signal.HotTicker      `json:"hot"`
}

// CohortAnalytics holds win-rate and average-return figures for one
// strategy cohort of the dataset.
type CohortAnalytics struct {
	Name      string  `json:"name"`
	Records   int     `json:"records"`
	WinRate   float64 `json:"winRate"`
	AvgReturn float64 `json:"avgReturn"`
}

// AnalyticsResponse is the analytics page payload: per-cohort performance
// of the named return column.
type AnalyticsResponse struct {
	Field   string            `json:"field"`
	Cohorts []CohortAnalytics `json:"cohorts"`
}

// UploadResponse reports a successful merge.
type UploadResponse struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// WatchAddResponse reports whether an add actually inserted; duplicate
// adds are soft no-ops, not errors.
type WatchAddResponse struct {
	Symbol string `json:"symbol"`
	Added  bool   `json:"added"`
}

// TradeJSON is a journal entry with its derived profit/loss attached.
type TradeJSON struct {
	app.Trade
	PL     float64 `json:"pl"`
	Closed bool    `json:"closed"`
}

func convertTrade(t app.Trade) TradeJSON {
	pl, closed := t.PL()
	return TradeJSON{Trade: t, PL: pl, Closed: closed}
}

func convertTrades(trades []app.Trade) []TradeJSON {
	out := make([]TradeJSON, len(trades))
	for i, t := range trades {
		out[i] = convertTrade(t)
	}
	return out
}

// ArchiveDatesResponse lists upload-archive days.
type ArchiveDatesResponse struct {
	Dates []string `json:"dates"`
}
