package loadtest

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"

	"github.com/google/uuid"

	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/pkg/logger"
)

// ErrNothingToSubmit is returned when no competitor or category is known.
var ErrNothingToSubmit = errors.New("no competitors or categories to submit for")

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}

// Generate creates config.Submissions runs spread across the configured
// competitors and categories.
func Generate(ctx context.Context, config *Config, stats *Stats) ([]Submission, error) {
	if len(config.Competitors) == 0 || len(config.Categories) == 0 {
		return nil, ErrNothingToSubmit
	}
	logger.Get().Info(ctx, "generating submissions", logger.Int("submissions", config.Submissions))

	out := make([]Submission, config.Submissions)
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = generateSingle(config)
	}

	stats.Generated = len(out)
	return out, nil
}

func generateSingle(config *Config) Submission {
	id := config.Competitors[randomInt(int64(len(config.Competitors)))]
	cat := config.Categories[randomInt(int64(len(config.Categories)))]

	s := Submission{
		SteamID:  strconv.FormatUint(id, 10),
		Category: cat,
		Time:     uint64(minTicks + randomInt(maxTicks-minTicks)),
		Portals:  uint64(randomInt(maxPortals + 1)),
	}
	if cat == category.LowestPortals {
		s.Segmented = randomInt(2) == 0
	}
	if randomInt(noteOdds) == 0 {
		s.Note = "loadtest " + uuid.New().String()
	}
	return s
}
