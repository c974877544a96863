// Package domain defines the core types shared by the collector: symbols,
// daily price records, checkpoint keys, and run outcomes.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Symbol is an opaque tradable identifier such as "AAPL" or "BRK.B".
type Symbol = string

// DailyPriceRecord is one symbol's open/high/low/close/volume for one
// calendar date. Date is a UTC midnight.
type DailyPriceRecord struct {
	Date   time.Time
	Symbol Symbol
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// SentinelRecord returns the zero-filled record meaning "the symbol existed
// on date but no figures were obtained".
func SentinelRecord(date time.Time, symbol Symbol) DailyPriceRecord {
	return DailyPriceRecord{
		Date:   date,
		Symbol: symbol,
		Open:   decimal.Zero,
		High:   decimal.Zero,
		Low:    decimal.Zero,
		Close:  decimal.Zero,
	}
}

// IsSentinel reports whether every figure of r is zero.
func (r DailyPriceRecord) IsSentinel() bool {
	return r.Open.IsZero() && r.High.IsZero() && r.Low.IsZero() && r.Close.IsZero() && r.Volume == 0
}

// Checkpoint state keys. Values are ISO-8601 dates.
const (
	KeyLastAddedDate        = "lastAddedDate"
	KeyAVRateLimitResetDate = "avRateLimitResetDate"
	KeyNasdaqStartDate      = "nasdaqStartDate"
)

// RunOutcome is the terminal state of one collector invocation.
type RunOutcome string

const (
	// OutcomeCompleted means the date loop reached today.
	OutcomeCompleted RunOutcome = "completed"
	// OutcomeRateLimited means the secondary provider's quota is exhausted,
	// either detected during this run or still in cooldown.
	OutcomeRateLimited RunOutcome = "rate_limited"
	// OutcomeAborted means an unexpected error stopped the run.
	OutcomeAborted RunOutcome = "aborted"
)

// PartitionCommitted describes one date partition the collector wrote and
// checkpointed.
type PartitionCommitted struct {
	Date        time.Time `json:"date"`
	Key         string    `json:"key"`
	Records     int       `json:"records"`
	Sentinels   int       `json:"sentinels"`
	CommittedAt time.Time `json:"committedAt"`
}
