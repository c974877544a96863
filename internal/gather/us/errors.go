package us

import "errors"

// Classification errors returned by BarSource implementations. Callers match
// them with errors.Is.
var (
	// ErrSymbolUnknown means the provider does not recognise the symbol.
	ErrSymbolUnknown = errors.New("symbol unknown to provider")
	// ErrNoDataForDate means the symbol is known but has no bar on the date.
	ErrNoDataForDate = errors.New("no data for date")
	// ErrRateLimited means every provider credential has exhausted its quota.
	ErrRateLimited = errors.New("provider rate limit exhausted")
)
