// Package loadtest drives a running epochtal server with concurrent run
// submissions and checks the leaderboard it reconstructs.
package loadtest

import "time"

// Config holds configuration for one load test.
type Config struct {
	BaseURL     string        // base URL of the service
	Submissions int           // number of runs to submit
	Workers     int           // concurrent submitters
	Timeout     time.Duration // per-request timeout
	Competitors []uint64      // steamids registered with the server
	Categories  []string      // categories of the active period
	Verbose     bool
}

// Submission is one generated run, mirroring the POST /runs body.
type Submission struct {
	SteamID   string `json:"steamid"`
	Category  string `json:"category"`
	Time      uint64 `json:"time"`
	Portals   uint64 `json:"portals"`
	Note      string `json:"note,omitempty"`
	Segmented bool   `json:"segmented,omitempty"`
}

// Stats holds load test statistics.
type Stats struct {
	Generated          int           `json:"generated"`
	Submitted          int           `json:"submitted"`
	Accepted           int           `json:"accepted"`
	Failed             int           `json:"failed"`
	LeaderboardEntries int           `json:"leaderboard_entries"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	Duration           time.Duration `json:"duration_ns"`
}
