package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"stockcollector/internal/config"
	"stockcollector/internal/domain"
	"stockcollector/internal/gather/us"
	"stockcollector/internal/kafka"
	"stockcollector/internal/metrics"
	"stockcollector/internal/scheduler"
	"stockcollector/internal/store"
	"stockcollector/internal/util"
)

func main() {
	cfgPath := flag.String("config", config.Path(), "path to the YAML config file")
	daemon := flag.Bool("daemon", false, "run on the configured cron schedule and serve metrics")
	showState := flag.Bool("show-state", false, "print the checkpoint and exit")
	resetCooldown := flag.Bool("reset-cooldown", false, "clear avRateLimitResetDate and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	state, err := openStateStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open state store: %v", err)
	}
	defer state.Close()

	switch {
	case *showState:
		if err := printState(ctx, state); err != nil {
			log.Fatalf("show state: %v", err)
		}
		return
	case *resetCooldown:
		if err := state.Put(ctx, map[string]string{domain.KeyAVRateLimitResetDate: ""}); err != nil {
			log.Fatalf("reset cooldown: %v", err)
		}
		slog.Info("cooldown cleared")
		return
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)

	var notifier us.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		notifier = producer
	}

	app := &app{cfg: cfg, state: state, pstore: pstore, notifier: notifier}

	if !*daemon {
		outcome, err := app.runOnce(ctx)
		if err != nil {
			log.Fatalf("collector %s: %v", outcome, err)
		}
		slog.Info("collector done", "outcome", outcome)
		return
	}

	app.metrics = metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := app.metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	sched := scheduler.NewScheduler(ctx, cfg.Location(), logger)
	if err := sched.Register("stock-collector", cfg.Collector.Schedule, func(ctx context.Context) error {
		_, err := app.runOnce(ctx)
		return err
	}); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	slog.Info("starting stock-collector daemon", "schedule", cfg.Collector.Schedule, "metrics", cfg.Metrics.Addr)
	sched.Start()
	<-ctx.Done()
	sched.Stop()
}

// app holds what survives across runs. Sources and the catalog are rebuilt
// for every run so their caches never outlive it.
type app struct {
	cfg      *config.Config
	state    store.StateStore
	pstore   *store.ParquetStore
	notifier us.Notifier
	metrics  *metrics.Metrics
}

func (a *app) runOnce(ctx context.Context) (domain.RunOutcome, error) {
	if a.cfg.Collector.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Collector.RunTimeout)
		defer cancel()
	}

	catalog, err := us.LoadSymbolCatalog(ctx, a.pstore, a.cfg.Collector.SymbolsPath)
	if err != nil {
		return domain.OutcomeAborted, fmt.Errorf("loading symbols: %w", err)
	}

	opts := us.CollectorOptions{
		State:   a.state,
		Writer:  a.pstore,
		Symbols: catalog.List(),
		Primary: us.NewNasdaqSource(
			a.cfg.Nasdaq.BaseURL,
			a.cfg.Nasdaq.Timeout,
			util.NewRateLimiter(a.cfg.Nasdaq.RateLimitPerMin),
		),
		Secondary: us.NewAlphaVantageSource(
			a.cfg.AlphaVantage.BaseURL,
			a.cfg.AlphaVantage.Timeout,
			a.cfg.AlphaVantage.APIKeys,
		),
		CourtesyPause: a.cfg.Nasdaq.CourtesyPause,
		BackfillYears: a.cfg.Collector.BackfillYears,
		Location:      a.cfg.Location(),
		Notifier:      a.notifier,
		Logger:        slog.Default(),
	}
	if a.metrics != nil {
		opts.Recorder = a.metrics
	}
	return us.NewDailyCollector(opts).Collect(ctx)
}

func printState(ctx context.Context, state store.StateStore) error {
	keys := []string{domain.KeyLastAddedDate, domain.KeyAVRateLimitResetDate, domain.KeyNasdaqStartDate}
	sort.Strings(keys)
	for _, key := range keys {
		v, ok, err := state.Get(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			v = "-"
		}
		fmt.Fprintf(os.Stdout, "%-22s %s\n", key, v)
	}
	return nil
}
