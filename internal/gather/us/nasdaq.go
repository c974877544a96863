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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stockcollector/internal/domain"
	"stockcollector/internal/util"
)

var _ WindowedSource = (*NasdaqSource)(nil)

const (
	nasdaqDateLayout     = "01/02/2006"
	nasdaqUnknownSymbol  = 1001
	nasdaqRowLimit       = "10000"
	nasdaqDefaultBaseURL = "https://api.nasdaq.com"
	// The API rejects requests without a browser-like agent.
	nasdaqUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// NasdaqSource is the primary BarSource. The first fetch for a symbol
// downloads every bar in the window; later dates are served from memory.
type NasdaqSource struct {
	client  *http.Client
	baseURL string
	limiter *util.RateLimiter
	log     *slog.Logger

	mu      sync.Mutex
	from    time.Time
	to      time.Time
	bars    map[string]map[string]domain.DailyPriceRecord
	unknown map[string]bool
}

// NewNasdaqSource creates a NasdaqSource. A nil limiter disables request
// throttling.
func NewNasdaqSource(baseURL string, timeout time.Duration, limiter *util.RateLimiter) *NasdaqSource {
	if baseURL == "" {
		baseURL = nasdaqDefaultBaseURL
	}
	return &NasdaqSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: limiter,
		log:     slog.Default().With("source", "nasdaq"),
		bars:    make(map[string]map[string]domain.DailyPriceRecord),
		unknown: make(map[string]bool),
	}
}

// SetWindow bounds the history requested per symbol. It only affects
// symbols not fetched yet.
func (s *NasdaqSource) SetWindow(from, to time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.from, s.to = util.Date(from), util.Date(to)
}

// FetchBar returns the bar for symbol on date, ErrSymbolUnknown for a symbol
// the API does not list, or ErrNoDataForDate.
func (s *NasdaqSource) FetchBar(ctx context.Context, date time.Time, symbol string) (domain.DailyPriceRecord, error) {
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

func (s *NasdaqSource) history(ctx context.Context, symbol string) (map[string]domain.DailyPriceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unknown[symbol] {
		return nil, ErrSymbolUnknown
	}
	if bars, ok := s.bars[symbol]; ok {
		return bars, nil
	}

	bars, err := s.download(ctx, symbol)
	if errors.Is(err, ErrSymbolUnknown) {
		s.unknown[symbol] = true
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	s.bars[symbol] = bars
	s.log.Debug("cached history", "symbol", symbol, "bars", len(bars))
	return bars, nil
}

// nasdaqResponse is the subset of /api/quote/{symbol}/historical we read.
type nasdaqResponse struct {
	Data *struct {
		TradesTable struct {
			Rows []nasdaqRow `json:"rows"`
		} `json:"tradesTable"`
	} `json:"data"`
	Status struct {
		RCode        int `json:"rCode"`
		BCodeMessage []struct {
			Code         int    `json:"code"`
			ErrorMessage string `json:"errorMessage"`
		} `json:"bCodeMessage"`
	} `json:"status"`
}

type nasdaqRow struct {
	Date   string `json:"date"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
}

func (s *NasdaqSource) download(ctx context.Context, symbol string) (map[string]domain.DailyPriceRecord, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.historyURL(symbol), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", nasdaqUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nasdaq %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nasdaq %s: reading body: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nasdaq %s: HTTP %d: %s", symbol, resp.StatusCode, truncate(body, 200))
	}

	var parsed nasdaqResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("nasdaq %s: decoding response: %w", symbol, err)
	}
	for _, m := range parsed.Status.BCodeMessage {
		if m.Code == nasdaqUnknownSymbol {
			return nil, ErrSymbolUnknown
		}
	}

	bars := make(map[string]domain.DailyPriceRecord)
	if parsed.Data == nil {
		return bars, nil
	}
	for _, row := range parsed.Data.TradesTable.Rows {
		rec, err := parseNasdaqRow(symbol, row)
		if err != nil {
			return nil, fmt.Errorf("nasdaq %s: %w", symbol, err)
		}
		bars[util.FormatDate(rec.Date)] = rec
	}
	return bars, nil
}

func (s *NasdaqSource) historyURL(symbol string) string {
	to := s.to
	if to.IsZero() {
		to = util.Date(time.Now())
	}
	from := s.from
	if from.IsZero() {
		from = to
	}

	q := url.Values{}
	q.Set("assetclass", "stocks")
	q.Set("limit", nasdaqRowLimit)
	q.Set("fromdate", util.FormatDate(from))
	q.Set("todate", util.FormatDate(to))
	return fmt.Sprintf("%s/api/quote/%s/historical?%s", s.baseURL, url.PathEscape(providerSymbol(symbol)), q.Encode())
}

func parseNasdaqRow(symbol string, row nasdaqRow) (domain.DailyPriceRecord, error) {
	t, err := time.Parse(nasdaqDateLayout, strings.TrimSpace(row.Date))
	if err != nil {
		return domain.DailyPriceRecord{}, fmt.Errorf("parsing row date %q: %w", row.Date, err)
	}

	rec := domain.DailyPriceRecord{Date: util.Date(t), Symbol: symbol}
	fields := []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&rec.Open, row.Open},
		{&rec.High, row.High},
		{&rec.Low, row.Low},
		{&rec.Close, row.Close},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(cleanNumber(f.raw))
		if err != nil {
			return domain.DailyPriceRecord{}, fmt.Errorf("parsing price %q on %s: %w", f.raw, row.Date, err)
		}
		*f.dst = v
	}

	// Volume is "N/A" on some thin days; keep the prices.
	if vol, err := strconv.ParseInt(cleanNumber(row.Volume), 10, 64); err == nil && vol > 0 {
		rec.Volume = vol
	}
	return rec, nil
}

// cleanNumber strips currency symbols and thousands separators.
func cleanNumber(s string) string {
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
