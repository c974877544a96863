package us

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stockcollector/internal/domain"
	"stockcollector/internal/util"
)

var _ BarSource = (*AlphaVantageSource)(nil)

const alphaVantageDefaultBaseURL = "https://www.alphavantage.co"

// AlphaVantageSource is the fallback BarSource. It downloads a symbol's full
// daily series once and rotates through API keys as each one hits its quota.
type AlphaVantageSource struct {
	client  *http.Client
	baseURL string
	keys    []string
	log     *slog.Logger

	mu     sync.Mutex
	cursor int
	bars   map[string]map[string]domain.DailyPriceRecord
}

// NewAlphaVantageSource creates an AlphaVantageSource over the given keys.
// With no keys every fetch reports ErrRateLimited.
func NewAlphaVantageSource(baseURL string, timeout time.Duration, keys []string) *AlphaVantageSource {
	if baseURL == "" {
		baseURL = alphaVantageDefaultBaseURL
	}
	return &AlphaVantageSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		keys:    append([]string(nil), keys...),
		log:     slog.Default().With("source", "alphavantage"),
		bars:    make(map[string]map[string]domain.DailyPriceRecord),
	}
}

// FetchBar returns the bar for symbol on date, ErrNoDataForDate, or
// ErrRateLimited once every key is exhausted.
func (s *AlphaVantageSource) FetchBar(ctx context.Context, date time.Time, symbol string) (domain.DailyPriceRecord, error) {
	bars, err := s.history(ctx, symbol)
	if err != nil {
		return domain.DailyPriceRecord{}, err
	}
	rec, ok := bars[util.FormatDate(date)]
	if !ok {
		return domain.DailyPriceRecord{}, ErrNoDataForDate
	}
	return rec, nil
}

func (s *AlphaVantageSource) history(ctx context.Context, symbol string) (map[string]domain.DailyPriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bars, ok := s.bars[symbol]; ok {
		return bars, nil
	}

	// Each key gets at most one attempt per run.
	for s.cursor < len(s.keys) {
		bars, err := s.download(ctx, symbol, s.keys[s.cursor])
		if errors.Is(err, errQuotaExhausted) {
			s.cursor++
			s.log.Warn("api key quota exhausted", "key_index", s.cursor-1, "remaining", len(s.keys)-s.cursor)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.bars[symbol] = bars
		return bars, nil
	}
	return nil, ErrRateLimited
}

// errQuotaExhausted marks a quota response for the active key.
var errQuotaExhausted = errors.New("alphavantage quota exhausted")

// avResponse is TIME_SERIES_DAILY after cleanResponseBody.
type avResponse struct {
	ErrorMessage string           `json:"Error Message"`
	Note         string           `json:"Note"`
	Information  string           `json:"Information"`
	TimeSeries   map[string]avBar `json:"Time Series (Daily)"`
}

type avBar struct {
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

func (s *AlphaVantageSource) download(ctx context.Context, symbol, key string) (map[string]domain.DailyPriceRecord, error) {
	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("outputsize", "full")
	q.Set("symbol", providerSymbol(symbol))
	q.Set("apikey", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/query?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage %s: %w", symbol, redactKey(err, key))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alphavantage %s: reading body: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage %s: HTTP %d", symbol, resp.StatusCode)
	}

	// API uses odd format which includes numbers in JSON keys
	var parsed avResponse
	if err := json.Unmarshal(cleanResponseBody(body), &parsed); err != nil {
		return nil, fmt.Errorf("alphavantage %s: decoding response: %w", symbol, err)
	}

	switch {
	case parsed.Note != "" || parsed.Information != "":
		return nil, errQuotaExhausted
	case parsed.ErrorMessage != "":
		s.log.Debug("no series", "symbol", symbol, "message", parsed.ErrorMessage)
		return map[string]domain.DailyPriceRecord{}, nil
	}

	bars := make(map[string]domain.DailyPriceRecord, len(parsed.TimeSeries))
	for day, bar := range parsed.TimeSeries {
		rec, err := parseAVBar(symbol, day, bar)
		if err != nil {
			return nil, fmt.Errorf("alphavantage %s: %w", symbol, err)
		}
		bars[util.FormatDate(rec.Date)] = rec
	}
	return bars, nil
}

func parseAVBar(symbol, day string, bar avBar) (domain.DailyPriceRecord, error) {
	d, err := util.ParseDate(day)
	if err != nil {
		return domain.DailyPriceRecord{}, err
	}
	rec := domain.DailyPriceRecord{Date: d, Symbol: symbol}
	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&rec.Open, bar.Open},
		{&rec.High, bar.High},
		{&rec.Low, bar.Low},
		{&rec.Close, bar.Close},
	} {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return domain.DailyPriceRecord{}, fmt.Errorf("parsing price %q on %s: %w", f.raw, day, err)
		}
		*f.dst = v
	}
	if vol, err := strconv.ParseInt(bar.Volume, 10, 64); err == nil && vol > 0 {
		rec.Volume = vol
	}
	return rec, nil
}

// numberedKey matches the "1. " prefix on series field names.
var numberedKey = regexp.MustCompile("\"[0-9]+\\. ")

func cleanResponseBody(bytes []byte) []byte {
	return numberedKey.ReplaceAll(bytes, []byte("\""))
}

// redactKey keeps API keys out of logged URL errors.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
