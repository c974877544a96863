package us

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nasdaqHistoryBody = `{
  "data": {
    "symbol": "AAPL",
    "totalRecords": 3,
    "tradesTable": {
      "rows": [
        {"date": "01/04/2024", "close": "$181.91", "volume": "71,983,570", "open": "$182.15", "high": "$183.0872", "low": "$180.88"},
        {"date": "01/03/2024", "close": "$184.25", "volume": "58,414,460", "open": "$184.22", "high": "$185.88", "low": "$183.43"},
        {"date": "01/02/2024", "close": "$185.64", "volume": "N/A", "open": "$187.15", "high": "$188.44", "low": "$183.885"}
      ]
    }
  },
  "message": null,
  "status": {"rCode": 200, "bCodeMessage": null, "developerMessage": null}
}`

const nasdaqUnknownBody = `{
  "data": null,
  "message": null,
  "status": {"rCode": 400, "bCodeMessage": [{"code": 1001, "errorMessage": "Symbol not exists"}], "developerMessage": null}
}`

func TestNasdaqSourceFetchAndCache(t *testing.T) {
	var hits atomic.Int32
	var gotPath, gotQuery, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotPath, gotQuery, gotAgent = r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")
		fmt.Fprint(w, nasdaqHistoryBody)
	}))
	defer srv.Close()

	src := NewNasdaqSource(srv.URL, 5*time.Second, nil)
	src.SetWindow(time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	rec, err := src.FetchBar(ctx, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.Equal(t, "184.25", rec.Close.String())
	assert.Equal(t, "184.22", rec.Open.String())
	assert.Equal(t, "185.88", rec.High.String())
	assert.Equal(t, "183.43", rec.Low.String())
	assert.Equal(t, int64(58414460), rec.Volume)

	assert.Equal(t, "/api/quote/AAPL/historical", gotPath)
	assert.Contains(t, gotQuery, "assetclass=stocks")
	assert.Contains(t, gotQuery, "limit=10000")
	assert.Contains(t, gotQuery, "fromdate=2014-01-01")
	assert.Contains(t, gotQuery, "todate=2024-01-05")
	assert.NotEmpty(t, gotAgent)

	// Unparsable volume keeps the prices.
	rec, err = src.FetchBar(ctx, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Volume)
	assert.Equal(t, "185.64", rec.Close.String())

	_, err = src.FetchBar(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "AAPL")
	assert.ErrorIs(t, err, ErrNoDataForDate)

	assert.Equal(t, int32(1), hits.Load(), "history is downloaded once per symbol")
}

func TestNasdaqSourceUnknownSymbol(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/api/quote/BRK-B/historical", r.URL.Path)
		fmt.Fprint(w, nasdaqUnknownBody)
	}))
	defer srv.Close()

	src := NewNasdaqSource(srv.URL, 5*time.Second, nil)
	for i := 0; i < 2; i++ {
		_, err := src.FetchBar(context.Background(), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "BRK.B")
		assert.ErrorIs(t, err, ErrSymbolUnknown)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestNasdaqSourceNullRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"tradesTable":{"rows":null}},"status":{"rCode":200}}`)
	}))
	defer srv.Close()

	_, err := NewNasdaqSource(srv.URL, 5*time.Second, nil).FetchBar(context.Background(), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "NEW")
	assert.ErrorIs(t, err, ErrNoDataForDate)
}

func TestNasdaqSourceErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http status", http.StatusBadGateway, "bad gateway", "HTTP 502"},
		{"bad json", http.StatusOK, "{", "decoding response"},
		{"bad price", http.StatusOK, `{"data":{"tradesTable":{"rows":[{"date":"01/02/2024","close":"N/A","open":"$1","high":"$1","low":"$1","volume":"1"}]}}}`, "parsing price"},
		{"bad date", http.StatusOK, `{"data":{"tradesTable":{"rows":[{"date":"2024-01-02","close":"$1","open":"$1","high":"$1","low":"$1","volume":"1"}]}}}`, "parsing row date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewNasdaqSource(srv.URL, 5*time.Second, nil).FetchBar(context.Background(), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "AAPL")
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNoDataForDate)
			assert.NotErrorIs(t, err, ErrSymbolUnknown)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCleanNumber(t *testing.T) {
	assert.Equal(t, "1234.5", cleanNumber("$1,234.5"))
	assert.Equal(t, "71983570", cleanNumber(" 71,983,570 "))
	assert.True(t, strings.HasPrefix(truncate([]byte(strings.Repeat("x", 300)), 10), "xxxxxxxxxx"))
}
