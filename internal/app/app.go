// Package app owns the mutable application state: the record dataset, the
// watchlist, the trading journal, and UI settings. Every mutation funnels
// through a method that persists the touched slot, so the signal engine and
// view layer only ever see consistent snapshots.
package app

import (
	"log/slog"
	"sync"
	"time"

	"optionsradar/internal/domain"
	"optionsradar/internal/store"
)

// WatchEntry is one user-curated watchlist row, keyed by symbol.
type WatchEntry struct {
	Symbol  string    `json:"symbol"`
	Notes   string    `json:"notes"`
	AddedAt time.Time `json:"addedAt"`
}

// Trade is one trading-journal entry. ExitPrice is nil while the trade is
// open; profit/loss is always derived, never stored.
type Trade struct {
	ID         int64     `json:"id"` // wallclock milliseconds at creation
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"` // Call, Put, Stock - free-form tag
	EntryPrice float64   `json:"entryPrice"`
	ExitPrice  *float64  `json:"exitPrice"`
	Timestamp  time.Time `json:"timestamp"`
}

// PL returns the percentage profit/loss for a closed trade, and false while
// the trade has no exit price.
func (t Trade) PL() (float64, bool) {
	if t.ExitPrice == nil || t.EntryPrice == 0 {
		return 0, false
	}
	return (*t.ExitPrice - t.EntryPrice) / t.EntryPrice * 100, true
}

// TradeUpdate carries the fields of a shallow journal update; nil members
// are left untouched.
type TradeUpdate struct {
	Symbol     *string  `json:"symbol"`
	Type       *string  `json:"type"`
	EntryPrice *float64 `json:"entryPrice"`
	ExitPrice  *float64 `json:"exitPrice"`
}

// Settings are the persisted UI flags.
type Settings struct {
	DarkMode    bool `json:"darkMode"`
	AutoRefresh bool `json:"autoRefresh"`
}

// App holds the live state and its persistence. All access goes through
// the mutex, so concurrent uploads serialize instead of interleaving.
type App struct {
	mu      sync.Mutex
	slots   store.Slots
	archive *store.Archive
	log     *slog.Logger

	dataset   []domain.Record
	watchlist []WatchEntry
	journal   []Trade
	settings  Settings

	lastTradeID int64
}

// New loads all slots from the store and returns a ready App. Corrupt slots
// degrade to empty state with a warning; they are never a visible failure.
func New(slots store.Slots, archive *store.Archive, log *slog.Logger) *App {
	a := &App{slots: slots, archive: archive, log: log}

	a.loadSlot(store.SlotDataset, &a.dataset)
	a.loadSlot(store.SlotWatchlist, &a.watchlist)
	a.loadSlot(store.SlotJournal, &a.journal)
	a.loadSlot(store.SlotSettings, &a.settings)

	for _, t := range a.journal {
		if t.ID > a.lastTradeID {
			a.lastTradeID = t.ID
		}
	}
	return a
}

func (a *App) loadSlot(key string, into any) {
	res := a.slots.Get(key)
	switch res.State {
	case store.SlotCorrupt:
		a.log.Warn("slot unreadable, treating as empty", "slot", key, "error", res.Err)
	case store.SlotLoaded:
		if !res.Decode(into) {
			a.log.Warn("slot failed to decode, treating as empty", "slot", key)
		}
	}
}

func (a *App) persist(key string, value any) {
	if err := a.slots.Put(key, value); err != nil {
		a.log.Error("persisting slot", "slot", key, "error", err)
	}
}

func (a *App) stampUpdate() {
	a.persist(store.SlotLastUpdate, time.Now().UTC().Format(time.RFC3339))
}

// LastUpdate returns the persisted last-update timestamp, zero when unset.
func (a *App) LastUpdate() time.Time {
	var s string
	if !a.slots.Get(store.SlotLastUpdate).Decode(&s) {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ---------------------------------------------------------------------------
// Dataset
// ---------------------------------------------------------------------------

// Dataset returns a snapshot copy of the current dataset.
func (a *App) Dataset() []domain.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Record, len(a.dataset))
	copy(out, a.dataset)
	return out
}

// MergeUpload appends parsed records to the dataset. Duplicate
// (Symbol, Date) pairs are legal and accumulate across uploads. The batch
// is also written to the Parquet archive.
func (a *App) MergeUpload(records []domain.Record) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.dataset = append(a.dataset, records...)
	a.persist(store.SlotDataset, a.dataset)
	a.stampUpdate()

	if a.archive != nil {
		if err := a.archive.WriteBatch(records, time.Now()); err != nil {
			a.log.Warn("archiving upload batch", "error", err)
		}
	}

	a.log.Info("merged upload", "records", len(records), "total", len(a.dataset))
	return len(a.dataset)
}

// ReplaceDataset swaps the full dataset, the demo-data load path.
func (a *App) ReplaceDataset(records []domain.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.dataset = records
	a.persist(store.SlotDataset, a.dataset)
	a.stampUpdate()
	a.log.Info("replaced dataset", "records", len(records))
}

// ---------------------------------------------------------------------------
// Watchlist
// ---------------------------------------------------------------------------

// Watchlist returns a snapshot copy of the watchlist.
func (a *App) Watchlist() []WatchEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]WatchEntry, len(a.watchlist))
	copy(out, a.watchlist)
	return out
}

// AddWatch adds a symbol to the watchlist. Duplicate adds return false and
// change nothing.
func (a *App) AddWatch(symbol, notes string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.watchlist {
		if a.watchlist[i].Symbol == symbol {
			return false
		}
	}
	a.watchlist = append(a.watchlist, WatchEntry{
		Symbol:  symbol,
		Notes:   notes,
		AddedAt: time.Now().UTC(),
	})
	a.persist(store.SlotWatchlist, a.watchlist)
	return true
}

// RemoveWatch removes a symbol; absent symbols are a no-op.
func (a *App) RemoveWatch(symbol string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.watchlist[:0]
	for _, e := range a.watchlist {
		if e.Symbol != symbol {
			kept = append(kept, e)
		}
	}
	a.watchlist = kept
	a.persist(store.SlotWatchlist, a.watchlist)
}

// UpdateWatchNotes replaces the notes for a symbol; absent symbols are a
// no-op.
func (a *App) UpdateWatchNotes(symbol, notes string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.watchlist {
		if a.watchlist[i].Symbol == symbol {
			a.watchlist[i].Notes = notes
			a.persist(store.SlotWatchlist, a.watchlist)
			return
		}
	}
}

// ClearWatchlist removes every entry.
func (a *App) ClearWatchlist() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.watchlist = nil
	a.persist(store.SlotWatchlist, []WatchEntry{})
}

// ---------------------------------------------------------------------------
// Trading journal
// ---------------------------------------------------------------------------

// Journal returns a snapshot copy of the trading journal.
func (a *App) Journal() []Trade {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Trade, len(a.journal))
	copy(out, a.journal)
	return out
}

// AddTrade appends a journal entry and returns its id: wallclock
// milliseconds, bumped when two adds land on the same millisecond so
// delete-by-id stays unambiguous.
func (a *App) AddTrade(symbol, tradeType string, entryPrice float64) Trade {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	id := now.UnixMilli()
	if id <= a.lastTradeID {
		id = a.lastTradeID + 1
	}
	a.lastTradeID = id

	t := Trade{
		ID:         id,
		Symbol:     symbol,
		Type:       tradeType,
		EntryPrice: entryPrice,
		Timestamp:  now.UTC(),
	}
	a.journal = append(a.journal, t)
	a.persist(store.SlotJournal, a.journal)
	return t
}

// UpdateTrade shallow-merges the provided fields into the trade with the
// given id. Unknown ids are a no-op and return false.
func (a *App) UpdateTrade(id int64, u TradeUpdate) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.journal {
		if a.journal[i].ID != id {
			continue
		}
		if u.Symbol != nil {
			a.journal[i].Symbol = *u.Symbol
		}
		if u.Type != nil {
			a.journal[i].Type = *u.Type
		}
		if u.EntryPrice != nil {
			a.journal[i].EntryPrice = *u.EntryPrice
		}
		if u.ExitPrice != nil {
			a.journal[i].ExitPrice = u.ExitPrice
		}
		a.persist(store.SlotJournal, a.journal)
		return true
	}
	return false
}

// DeleteTrade removes the trade with the given id; unknown ids are a no-op.
func (a *App) DeleteTrade(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.journal[:0]
	for _, t := range a.journal {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	a.journal = kept
	a.persist(store.SlotJournal, a.journal)
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// Settings returns the persisted UI settings.
func (a *App) Settings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// SetSettings replaces and persists the UI settings.
func (a *App) SetSettings(s Settings) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings = s
	a.persist(store.SlotSettings, a.settings)
}
