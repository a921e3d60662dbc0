// Package model contains domain models passed between layers.
package model

import "time"

// Record is one decoded weekly ledger entry.
// Numeric fields are wider than their wire widths; encoding wraps them.
type Record struct {
	SteamID   uint64 // competitor id
	Category  string // category name, resolved by registry position
	Time      uint64 // run duration in ticks (u32 on the wire)
	Portals   uint64 // portal count (u8 on the wire)
	Timestamp uint64 // seconds since period start (u24 on the wire)
}

// IsTombstone reports whether r retracts an earlier record.
func (r Record) IsTombstone() bool {
	return r.Time == 0 && r.Portals == 0
}

// Run is a reconstructed leaderboard entry.
type Run struct {
	SteamID   uint64    `json:"steamid,string"`
	Time      uint64    `json:"time"`
	Portals   *uint64   `json:"portals,omitempty"`
	Date      time.Time `json:"date"`
	Note      string    `json:"note"`
	Segmented bool      `json:"segmented,omitempty"`
}

// Leaderboard maps a category name to its ranked runs.
type Leaderboard map[string][]Run

// ProfileRecord is one entry of a competitor's compacted history.
type ProfileRecord struct {
	Category  string // name in the competitor's private index
	Time      uint64 // u32 on the wire
	Portals   uint64 // u8 on the wire
	Timestamp uint64 // absolute seconds since tournament epoch, u32 on the wire
}

// CompactionJob asks a worker to rebuild one competitor's profile.
// Result, when non-nil, receives exactly one value.
type CompactionJob struct {
	SteamID uint64
	Result  chan<- error
}
