package loadtest

import (
	"fmt"
	"strconv"

	"github.com/p2r3/epochtal/internal/domain/leaderboard"
	"github.com/p2r3/epochtal/internal/domain/model"
)

type standing struct {
	category string
	steamID  uint64
}

// Verify checks board against the accepted submissions. Concurrent submits
// land in an unknown order, so each standing must be one of the times its
// competitor submitted rather than a specific one.
func Verify(accepted []Submission, board model.Leaderboard) error {
	times := make(map[standing]map[uint64]struct{})
	for _, s := range accepted {
		id, err := strconv.ParseUint(s.SteamID, 10, 64)
		if err != nil {
			return fmt.Errorf("bad steamid %q: %w", s.SteamID, err)
		}
		key := standing{category: s.Category, steamID: id}
		if times[key] == nil {
			times[key] = make(map[uint64]struct{})
		}
		times[key][s.Time] = struct{}{}
	}

	seen := make(map[standing]struct{}, len(times))
	for name, runs := range board {
		better := leaderboard.Comparator(name)
		for i, run := range runs {
			key := standing{category: name, steamID: run.SteamID}
			if _, dup := seen[key]; dup {
				return fmt.Errorf("%s: competitor %d ranked twice", name, run.SteamID)
			}
			seen[key] = struct{}{}

			submitted, ok := times[key]
			if !ok {
				return fmt.Errorf("%s: competitor %d ranked without a submission", name, run.SteamID)
			}
			if _, ok := submitted[run.Time]; !ok {
				return fmt.Errorf("%s: competitor %d ranked with unsubmitted time %d", name, run.SteamID, run.Time)
			}
			if i > 0 && better(run, runs[i-1]) {
				return fmt.Errorf("%s: entry %d ranks above entry %d", name, i, i-1)
			}
		}
	}

	for key := range times {
		if _, ok := seen[key]; !ok {
			return fmt.Errorf("%s: competitor %d missing from leaderboard", key.category, key.steamID)
		}
	}
	return nil
}
