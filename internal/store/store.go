// Package store defines storage for collected prices: date-keyed Parquet
// partitions, the symbol catalog file, and the key-value checkpoint state.
package store

import (
	"context"
	"time"

	"stockcollector/internal/domain"
)

// PartitionWriter persists one date's records as a single partition.
type PartitionWriter interface {
	// WritePartition replaces the partition for date with records merged
	// over any existing rows. Repeating a call with the same arguments
	// leaves an equivalent partition.
	WritePartition(ctx context.Context, date time.Time, records []domain.DailyPriceRecord) error
}

// PartitionReader reads committed partitions.
type PartitionReader interface {
	// ReadPartition returns the records stored for date.
	ReadPartition(ctx context.Context, date time.Time) ([]domain.DailyPriceRecord, error)

	// ListPartitions returns the dates that have a partition, ascending.
	ListPartitions(ctx context.Context) ([]time.Time, error)
}

// StateStore is a durable string key-value store for checkpoint state.
type StateStore interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Put writes all values in one atomic update. An empty value removes
	// the key.
	Put(ctx context.Context, values map[string]string) error

	// Close releases the underlying connection or file.
	Close() error
}
