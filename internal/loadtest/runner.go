package loadtest

import (
	"context"
	"fmt"
	"time"

	"github.com/p2r3/epochtal/pkg/logger"
)

// Run executes the complete load test against config.BaseURL.
//
// The server's active period must not hold runs from the same competitors
// beforehand, since those would show up as unsubmitted standings.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadtest")

	log.Info(ctx, "starting load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("submissions", config.Submissions),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Int("competitors", len(config.Competitors)),
		logger.Int("categories", len(config.Categories)))

	client := NewClient(config.BaseURL, config.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	runs, err := Generate(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("generation failed: %w", err)
	}

	accepted := submitAll(ctx, config, client, runs, stats)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	board, err := client.Leaderboard(ctx)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	for _, runs := range board {
		stats.LeaderboardEntries += len(runs)
	}

	if err := Verify(accepted, board); err != nil {
		return stats, fmt.Errorf("verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats)
	return stats, nil
}

func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Accepted) / float64(stats.Submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("failed", stats.Failed),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
