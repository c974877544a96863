package us

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"stockcollector/internal/store"
)

// SymbolCatalog is the ordered, deduplicated symbol universe for one run.
type SymbolCatalog struct {
	symbols []string
	sectors map[string]string
	index   map[string]int
}

// NewSymbolCatalog builds a catalog from records, keeping the first
// occurrence of each symbol.
func NewSymbolCatalog(records []store.SymbolRecord) *SymbolCatalog {
	c := &SymbolCatalog{
		symbols: make([]string, 0, len(records)),
		sectors: make(map[string]string, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, r := range records {
		sym := strings.TrimSpace(r.ID)
		if sym == "" {
			continue
		}
		if _, dup := c.index[sym]; dup {
			continue
		}
		c.index[sym] = len(c.symbols)
		c.symbols = append(c.symbols, sym)
		c.sectors[sym] = r.Sector
	}
	return c
}

// LoadSymbolCatalog reads the catalog file stored under key.
func LoadSymbolCatalog(ctx context.Context, ps *store.ParquetStore, key string) (*SymbolCatalog, error) {
	records, err := ps.ReadSymbols(ctx, key)
	if err != nil {
		return nil, err
	}
	return NewSymbolCatalog(records), nil
}

// List returns the symbols in catalog order.
func (c *SymbolCatalog) List() []string {
	return append([]string(nil), c.symbols...)
}

// Len returns the number of symbols.
func (c *SymbolCatalog) Len() int { return len(c.symbols) }

// Sector returns the sector recorded for symbol, or "".
func (c *SymbolCatalog) Sector(symbol string) string { return c.sectors[symbol] }

// After returns the symbols that follow symbol in catalog order. An unknown
// symbol yields the whole list.
func (c *SymbolCatalog) After(symbol string) []string {
	i, ok := c.index[symbol]
	if !ok {
		return c.List()
	}
	return append([]string(nil), c.symbols[i+1:]...)
}

// Last returns the final symbol, or "" for an empty catalog.
func (c *SymbolCatalog) Last() string {
	if len(c.symbols) == 0 {
		return ""
	}
	return c.symbols[len(c.symbols)-1]
}

// Records returns the catalog as storable records.
func (c *SymbolCatalog) Records() []store.SymbolRecord {
	out := make([]store.SymbolRecord, 0, len(c.symbols))
	for _, s := range c.symbols {
		out = append(out, store.SymbolRecord{ID: s, Sector: c.sectors[s]})
	}
	return out
}

// LoadCSVSymbols reads a CSV with a header row. The "symbol" column (or the
// first column) gives the symbol and an optional "sector" column the
// sector. Symbols are upper-cased.
func LoadCSVSymbols(path string) ([]store.SymbolRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CSV %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV %s: %w", path, err)
	}

	symbolIdx, sectorIdx := 0, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "symbol":
			symbolIdx = i
		case "sector":
			sectorIdx = i
		}
	}

	var records []store.SymbolRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV %s: %w", path, err)
		}
		if len(row) <= symbolIdx {
			continue
		}
		sym := strings.ToUpper(strings.TrimSpace(row[symbolIdx]))
		if sym == "" {
			continue
		}
		rec := store.SymbolRecord{ID: sym}
		if sectorIdx >= 0 && sectorIdx < len(row) {
			rec.Sector = strings.TrimSpace(row[sectorIdx])
		}
		records = append(records, rec)
	}
	return records, nil
}
