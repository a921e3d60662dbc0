// Package period defines the explicit handle for one competition period.
package period

import (
	"context"
	"time"

	"github.com/p2r3/epochtal/internal/domain/category"
	"github.com/p2r3/epochtal/internal/domain/weeklog"
)

// DefaultDuration is the length of a standard period.
const DefaultDuration = 7 * 24 * time.Hour

// Context bundles everything needed to read or write one period.
type Context struct {
	ID         string
	Number     uint64
	Duration   time.Duration
	Start      time.Time
	Categories category.List
	Ledger     *weeklog.Ledger
}

// Offset returns the absolute offset of the period on the tournament
// timeline in seconds: duration * (number - 1).
func (c *Context) Offset() uint64 {
	if c.Number == 0 {
		return 0
	}
	return uint64(c.Duration/time.Second) * (c.Number - 1)
}

// StartFor returns the absolute start of period number given the tournament
// epoch and period duration.
func StartFor(epoch time.Time, duration time.Duration, number uint64) time.Time {
	if number == 0 {
		return epoch
	}
	return epoch.Add(duration * time.Duration(number-1))
}

// Archive lists and opens concluded periods.
type Archive interface {
	// ListPeriods returns period ids ordered oldest to newest by number.
	ListPeriods(ctx context.Context) ([]string, error)
	// Period opens the period with the given id.
	Period(ctx context.Context, id string) (*Context, error)
}
