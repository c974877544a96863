package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"stockcollector/internal/config"
	"stockcollector/internal/store"
	"stockcollector/internal/util"
)

func main() {
	cfgPath := flag.String("config", config.Path(), "path to the YAML config file")
	date := flag.String("date", "", "partition date (YYYY-MM-DD); empty lists partitions")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	if *date == "" {
		dates, err := pstore.ListPartitions(ctx)
		if err != nil {
			log.Fatalf("list partitions: %v", err)
		}
		for _, d := range dates {
			fmt.Println(store.PartitionKey(d))
		}
		return
	}

	d, err := util.ParseDate(*date)
	if err != nil {
		log.Fatalf("%v", err)
	}
	records, err := pstore.ReadPartition(ctx, d)
	if err != nil {
		log.Fatalf("read partition: %v", err)
	}
	if len(records) == 0 {
		fmt.Fprintf(os.Stderr, "no partition for %s\n", *date)
		os.Exit(1)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "symbol\topen\thigh\tlow\tclose\tvolume\t")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t\n",
			r.Symbol, r.Open.StringFixed(2), r.High.StringFixed(2), r.Low.StringFixed(2), r.Close.StringFixed(2), r.Volume)
	}
	tw.Flush()
}
