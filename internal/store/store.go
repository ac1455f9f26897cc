// Package store provides the persistence layer: a string-keyed slot store
// holding JSON blobs (dataset, watchlist, journal, settings) and a Parquet
// archive of uploaded batches.
package store

import "encoding/json"

// Slot names used by the application. The whole persisted surface is this
// small fixed set.
const (
	SlotDataset    = "dataset"
	SlotWatchlist  = "watchlist"
	SlotJournal    = "journal"
	SlotSettings   = "settings"
	SlotLastUpdate = "last_update"
)

// SlotState distinguishes "no data" from "corrupt data" so callers can
// degrade gracefully while tests and logs still see the difference.
type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotLoaded
	SlotCorrupt
)

// LoadResult is the typed outcome of reading a slot.
type LoadResult struct {
	State SlotState
	raw   []byte
	Err   error // decode or read error when State is SlotCorrupt
}

// Decode unmarshals a loaded slot into v. It returns false for empty and
// corrupt slots, leaving v untouched, which is the graceful-degradation
// path: treat the slot as empty.
func (lr LoadResult) Decode(v any) bool {
	if lr.State != SlotLoaded {
		return false
	}
	if err := json.Unmarshal(lr.raw, v); err != nil {
		return false
	}
	return true
}

// Slots is the key-value persistence contract. Implementations JSON-encode
// values on Put and hand back raw blobs wrapped in a LoadResult on Get.
type Slots interface {
	Get(key string) LoadResult
	Put(key string, value any) error
	Delete(key string) error
	Close() error
}

// loaded builds a LoadResult for a blob read from storage, classifying
// undecodable JSON as corrupt up front.
func loaded(raw []byte) LoadResult {
	if len(raw) == 0 {
		return LoadResult{State: SlotEmpty}
	}
	if !json.Valid(raw) {
		return LoadResult{State: SlotCorrupt}
	}
	return LoadResult{State: SlotLoaded, raw: raw}
}
