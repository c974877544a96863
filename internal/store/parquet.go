package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"stockcollector/internal/domain"
	"stockcollector/internal/util"
)

// Compile-time interface checks.
var _ PartitionWriter = (*ParquetStore)(nil)
var _ PartitionReader = (*ParquetStore)(nil)

// ParquetStore implements PartitionWriter and PartitionReader using Parquet
// files on local disk. It also reads and writes the symbol catalog file.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// StockRecord is the Parquet schema for one symbol's daily prices.
type StockRecord struct {
	LocalDate int32   `parquet:"localDate,date"` // days since Unix epoch
	ID        string  `parquet:"id"`
	Close     float64 `parquet:"close"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Open      float64 `parquet:"open"`
	Volume    int64   `parquet:"volume"`
}

// SymbolRecord is the Parquet schema for the symbol catalog.
type SymbolRecord struct {
	ID     string `parquet:"id"`
	Sector string `parquet:"sector"`
}

// ---------------------------------------------------------------------------
// Partitions
// ---------------------------------------------------------------------------

const partitionRoot = "raw/stock"

// PartitionKey returns the storage key of the partition for date:
//
//	raw/stock/localDate=<YYYY-MM-DD>/data
func PartitionKey(date time.Time) string {
	return partitionRoot + "/localDate=" + util.FormatDate(date) + "/data"
}

// WritePartition merges records into the partition file for date and
// replaces it atomically.
func (s *ParquetStore) WritePartition(_ context.Context, date time.Time, records []domain.DailyPriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	incoming := make([]StockRecord, 0, len(records))
	for _, r := range records {
		incoming = append(incoming, toStockRecord(date, r))
	}

	path := s.partitionPath(date)
	existing, err := readParquetFile[StockRecord](path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading partition %s: %w", PartitionKey(date), err)
	}

	if err := writeParquetFile(path, mergeStockRecords(existing, incoming)); err != nil {
		return fmt.Errorf("writing partition %s: %w", PartitionKey(date), err)
	}
	return nil
}

// ReadPartition reads the records of the partition for date. A missing
// partition yields no records and no error.
func (s *ParquetStore) ReadPartition(_ context.Context, date time.Time) ([]domain.DailyPriceRecord, error) {
	rows, err := readParquetFile[StockRecord](s.partitionPath(date))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading partition %s: %w", PartitionKey(date), err)
	}

	records := make([]domain.DailyPriceRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, fromStockRecord(r))
	}
	return records, nil
}

// ListPartitions lists the dates with a partition directory.
func (s *ParquetStore) ListPartitions(_ context.Context) ([]time.Time, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, filepath.FromSlash(partitionRoot)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dates []time.Time
	for _, e := range entries {
		name, ok := strings.CutPrefix(e.Name(), "localDate=")
		if !e.IsDir() || !ok {
			continue
		}
		d, err := util.ParseDate(name)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// ---------------------------------------------------------------------------
// Symbol catalog
// ---------------------------------------------------------------------------

// ReadSymbols reads the catalog file stored under key (relative to DataDir).
func (s *ParquetStore) ReadSymbols(_ context.Context, key string) ([]SymbolRecord, error) {
	rows, err := readParquetFile[SymbolRecord](s.keyPath(key))
	if err != nil {
		return nil, fmt.Errorf("reading symbols %s: %w", key, err)
	}
	return rows, nil
}

// WriteSymbols replaces the catalog file stored under key.
func (s *ParquetStore) WriteSymbols(_ context.Context, key string, records []SymbolRecord) error {
	if err := writeParquetFile(s.keyPath(key), records); err != nil {
		return fmt.Errorf("writing symbols %s: %w", key, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// partitionPath returns the filesystem path for a partition file.
// Layout: <dataDir>/raw/stock/localDate=<YYYY-MM-DD>/data.parquet
func (s *ParquetStore) partitionPath(date time.Time) string {
	return s.keyPath(PartitionKey(date) + ".parquet")
}

func (s *ParquetStore) keyPath(key string) string {
	return filepath.Join(s.DataDir, filepath.FromSlash(key))
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

// writeParquetFile writes records to a sibling temp file and renames it over
// path, so readers never observe a half-written partition.
func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[T](path)
}

// mergeStockRecords deduplicates by symbol, preferring incoming records.
// Incoming order is kept; symbols only present in existing follow, sorted.
func mergeStockRecords(existing, incoming []StockRecord) []StockRecord {
	merged := make([]StockRecord, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(incoming))
	for _, r := range incoming {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}

	var rest []StockRecord
	for _, r := range existing {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		rest = append(rest, r)
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].ID < rest[j].ID })
	return append(merged, rest...)
}

func toStockRecord(date time.Time, r domain.DailyPriceRecord) StockRecord {
	return StockRecord{
		LocalDate: int32(util.Date(date).Unix() / 86400),
		ID:        r.Symbol,
		Close:     r.Close.InexactFloat64(),
		High:      r.High.InexactFloat64(),
		Low:       r.Low.InexactFloat64(),
		Open:      r.Open.InexactFloat64(),
		Volume:    r.Volume,
	}
}

func fromStockRecord(r StockRecord) domain.DailyPriceRecord {
	return domain.DailyPriceRecord{
		Date:   time.Unix(int64(r.LocalDate)*86400, 0).UTC(),
		Symbol: r.ID,
		Open:   decimal.NewFromFloat(r.Open),
		High:   decimal.NewFromFloat(r.High),
		Low:    decimal.NewFromFloat(r.Low),
		Close:  decimal.NewFromFloat(r.Close),
		Volume: r.Volume,
	}
}
