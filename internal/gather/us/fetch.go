package us

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockcollector/internal/domain"
	"stockcollector/internal/util"
)

// Origin tells where a fetched record came from.
type Origin string

const (
	OriginPrimary   Origin = "primary"
	OriginSecondary Origin = "secondary"
	// OriginSentinel is a zero-filled record for a symbol neither provider
	// had a bar for.
	OriginSentinel Origin = "sentinel"
	// OriginNone accompanies ErrNoDataForDate from the primary.
	OriginNone Origin = "none"
)

// Traded reports whether the origin carries real figures.
func (o Origin) Traded() bool {
	return o == OriginPrimary || o == OriginSecondary
}

// Fetcher applies the primary-then-secondary policy for one (date, symbol).
type Fetcher struct {
	primary   BarSource
	secondary BarSource
	pause     time.Duration
}

// NewFetcher creates a Fetcher. pause follows every successful primary call.
func NewFetcher(primary, secondary BarSource, pause time.Duration) *Fetcher {
	return &Fetcher{primary: primary, secondary: secondary, pause: pause}
}

// Fetch returns the symbol's record for date.
//
// A known symbol without a primary bar yields ErrNoDataForDate; the
// secondary is not consulted. A symbol unknown to the primary goes to the
// secondary, and a secondary miss becomes a sentinel record. Only
// ErrNoDataForDate, ErrRateLimited, and unexpected failures are returned as
// errors.
func (f *Fetcher) Fetch(ctx context.Context, date time.Time, symbol string) (domain.DailyPriceRecord, Origin, error) {
	rec, err := f.primary.FetchBar(ctx, date, symbol)
	switch {
	case err == nil:
		if f.pause > 0 {
			if perr := util.Pause(ctx, f.pause); perr != nil {
				return rec, OriginPrimary, perr
			}
		}
		return rec, OriginPrimary, nil
	case errors.Is(err, ErrNoDataForDate):
		return domain.DailyPriceRecord{}, OriginNone, ErrNoDataForDate
	case errors.Is(err, ErrSymbolUnknown):
		// fall through to secondary
	default:
		return domain.DailyPriceRecord{}, OriginNone, fmt.Errorf("primary: %w", err)
	}

	rec, err = f.secondary.FetchBar(ctx, date, symbol)
	switch {
	case err == nil:
		return rec, OriginSecondary, nil
	case errors.Is(err, ErrNoDataForDate):
		return domain.SentinelRecord(util.Date(date), symbol), OriginSentinel, nil
	case errors.Is(err, ErrRateLimited):
		return domain.DailyPriceRecord{}, OriginNone, ErrRateLimited
	default:
		return domain.DailyPriceRecord{}, OriginNone, fmt.Errorf("secondary: %w", err)
	}
}
