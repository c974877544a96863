package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"text/tabwriter"

	"stockcollector/internal/config"
	"stockcollector/internal/gather/us"
	"stockcollector/internal/store"
	"stockcollector/internal/util"
)

func main() {
	cfgPath := flag.String("config", config.Path(), "path to the YAML config file")
	importCSV := flag.String("import", "", "CSV file (symbol,sector) to write into the catalog")
	after := flag.String("after", "", "list only symbols after this one")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, "text"))

	ctx := context.Background()
	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	key := cfg.Collector.SymbolsPath

	if *importCSV != "" {
		records, err := us.LoadCSVSymbols(*importCSV)
		if err != nil {
			log.Fatalf("import: %v", err)
		}
		catalog := us.NewSymbolCatalog(records)
		if err := pstore.WriteSymbols(ctx, key, catalog.Records()); err != nil {
			log.Fatalf("import: %v", err)
		}
		slog.Info("catalog written", "key", key, "symbols", catalog.Len(), "last", catalog.Last())
		return
	}

	catalog, err := us.LoadSymbolCatalog(ctx, pstore, key)
	if err != nil {
		log.Fatalf("list: %v", err)
	}
	symbols := catalog.List()
	if *after != "" {
		symbols = catalog.After(*after)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, sym := range symbols {
		fmt.Fprintf(tw, "%s\t%s\n", sym, catalog.Sector(sym))
	}
	tw.Flush()
}
