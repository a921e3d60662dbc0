package loadtest

import "time"

// Generation ranges. Times are in ticks and must fit the u32 wire field;
// portals must fit u8.
const (
	minTicks   = 1
	maxTicks   = 1 << 20
	maxPortals = 255
	noteOdds   = 4 // one run in noteOdds carries a note
)

// Runner defaults.
const (
	DefaultWorkers       = 8
	DefaultTimeout       = 30 * time.Second
	PercentageMultiplier = 100
	progressInterval     = time.Second
)
