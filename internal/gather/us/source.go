package us

import (
	"context"
	"strings"
	"time"

	"stockcollector/internal/domain"
)

//go:generate mockgen -source=source.go -destination=mock_source_test.go -package=us

// BarSource returns one symbol's daily bar for a date.
type BarSource interface {
	FetchBar(ctx context.Context, date time.Time, symbol string) (domain.DailyPriceRecord, error)
}

// WindowedSource is a BarSource whose bulk request is bounded by a date
// window the collector sets before the first fetch.
type WindowedSource interface {
	BarSource
	SetWindow(from, to time.Time)
}

// providerSymbol maps a catalog symbol to the form both providers expect.
func providerSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}
