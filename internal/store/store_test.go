package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcollector/internal/domain"
)

func rec(date time.Time, sym string, close string, vol int64) domain.DailyPriceRecord {
	c := decimal.RequireFromString(close)
	return domain.DailyPriceRecord{
		Date: date, Symbol: sym,
		Open: c, High: c, Low: c, Close: c,
		Volume: vol,
	}
}

func TestPartitionKey(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "raw/stock/localDate=2024-01-02/data", PartitionKey(d))

	ps := NewParquetStore("/data")
	want := filepath.Join("/data", "raw", "stock", "localDate=2024-01-02", "data.parquet")
	assert.Equal(t, want, ps.partitionPath(d))
}

func TestParquetStoreWriteReadPartition(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	records := []domain.DailyPriceRecord{
		rec(d, "AAPL", "185.64", 82488700),
		domain.SentinelRecord(d, "XYZ"),
	}
	require.NoError(t, ps.WritePartition(ctx, d, records))

	got, err := ps.ReadPartition(ctx, d)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.True(t, d.Equal(got[0].Date))
	assert.Equal(t, "185.64", got[0].Close.String())
	assert.Equal(t, int64(82488700), got[0].Volume)

	assert.Equal(t, "XYZ", got[1].Symbol)
	assert.True(t, got[1].IsSentinel())

	_, err = os.Stat(ps.partitionPath(d) + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not survive a write")
}

func TestParquetStoreWritePartitionMergesBySymbol(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	d := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ps.WritePartition(ctx, d, []domain.DailyPriceRecord{
		rec(d, "MSFT", "370.6", 10),
		rec(d, "AAPL", "184", 20),
	}))
	require.NoError(t, ps.WritePartition(ctx, d, []domain.DailyPriceRecord{
		rec(d, "AAPL", "184.25", 58414500),
	}))

	got, err := ps.ReadPartition(ctx, d)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "184.25", got[0].Close.String())
	assert.Equal(t, "MSFT", got[1].Symbol)
}

func TestParquetStoreWritePartitionIdempotent(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	records := []domain.DailyPriceRecord{rec(d, "AAPL", "185.64", 1), rec(d, "MSFT", "370.87", 2)}

	require.NoError(t, ps.WritePartition(ctx, d, records))
	first, err := ps.ReadPartition(ctx, d)
	require.NoError(t, err)

	require.NoError(t, ps.WritePartition(ctx, d, records))
	second, err := ps.ReadPartition(ctx, d)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParquetStoreReadMissingPartition(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	got, err := ps.ReadPartition(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParquetStoreListPartitions(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	dates, err := ps.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, dates)

	d2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, ps.WritePartition(ctx, d2, []domain.DailyPriceRecord{rec(d2, "AAPL", "1", 1)}))
	require.NoError(t, ps.WritePartition(ctx, d1, []domain.DailyPriceRecord{rec(d1, "AAPL", "1", 1)}))

	dates, err = ps.ListPartitions(ctx)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.True(t, d1.Equal(dates[0]))
	assert.True(t, d2.Equal(dates[1]))
}

func TestParquetStoreSymbols(t *testing.T) {
	ps := NewParquetStore(t.TempDir())
	ctx := context.Background()

	in := []SymbolRecord{{ID: "AAPL", Sector: "Information Technology"}, {ID: "BRK.B", Sector: "Financials"}}
	require.NoError(t, ps.WriteSymbols(ctx, "symbols/spx.parquet", in))

	got, err := ps.ReadSymbols(ctx, "symbols/spx.parquet")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = ps.ReadSymbols(ctx, "symbols/missing.parquet")
	assert.Error(t, err)
}

func TestMergeStockRecords(t *testing.T) {
	existing := []StockRecord{{ID: "C", Close: 1}, {ID: "A", Close: 1}, {ID: "B", Close: 1}}
	incoming := []StockRecord{{ID: "B", Close: 2}, {ID: "B", Close: 3}}

	got := mergeStockRecords(existing, incoming)
	require.Len(t, got, 3)
	assert.Equal(t, StockRecord{ID: "B", Close: 2}, got[0])
	assert.Equal(t, "A", got[1].ID)
	assert.Equal(t, "C", got[2].ID)
}

// stateStoreContract runs the behavior every StateStore must share.
func stateStoreContract(t *testing.T, s StateStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, domain.KeyLastAddedDate)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, map[string]string{
		domain.KeyLastAddedDate:   "2024-01-03",
		domain.KeyNasdaqStartDate: "2014-01-01",
	}))

	v, ok, err := s.Get(ctx, domain.KeyLastAddedDate)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-03", v)

	require.NoError(t, s.Put(ctx, map[string]string{domain.KeyLastAddedDate: "2024-01-04"}))
	v, _, err = s.Get(ctx, domain.KeyLastAddedDate)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-04", v)

	// Empty value removes the key.
	require.NoError(t, s.Put(ctx, map[string]string{domain.KeyNasdaqStartDate: ""}))
	_, ok, err = s.Get(ctx, domain.KeyNasdaqStartDate)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, nil))
}

func TestFileStateStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s, err := NewFileStateStore(path)
	require.NoError(t, err)
	stateStoreContract(t, s)
	require.NoError(t, s.Close())

	reopened, err := NewFileStateStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(context.Background(), domain.KeyLastAddedDate)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-04", v)
}

func TestFileStateStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := NewFileStateStore(path)
	assert.Error(t, err)
}

func TestSQLiteStateStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := NewSQLiteStateStore(path)
	require.NoError(t, err)
	stateStoreContract(t, s)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStateStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, ok, err := reopened.Get(context.Background(), domain.KeyLastAddedDate)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-04", v)
}
