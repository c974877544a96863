// Package gather holds the pieces shared by collectors: the Gatherer
// contract, date ranges, and the scoped checkpoint over a state store.
package gather

import (
	"context"
	"time"

	"stockcollector/internal/util"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one collection pass and returns when it ends or ctx is
	// cancelled.
	Run(ctx context.Context) error
}

// DateRange is a half-open range of calendar days [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days returns every calendar day in the range in increasing order.
func (r DateRange) Days() []time.Time {
	start, end := util.Date(r.Start), util.Date(r.End)
	var days []time.Time
	for d := start; d.Before(end); d = util.AddDays(d, 1) {
		days = append(days, d)
	}
	return days
}

// Empty reports whether the range contains no days.
func (r DateRange) Empty() bool {
	return !util.Date(r.Start).Before(util.Date(r.End))
}
