package us

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stockcollector/internal/domain"
	"stockcollector/internal/gather"
	"stockcollector/internal/store"
	"stockcollector/internal/util"
)

var _ gather.Gatherer = (*DailyCollector)(nil)

// Recorder receives run statistics. Implementations must be safe to call
// from the collector goroutine.
type Recorder interface {
	SymbolFetched(origin string)
	DateCommitted(records, sentinels int)
	DateSkipped()
	RunFinished(outcome domain.RunOutcome, elapsed time.Duration)
}

// Notifier is told about each committed partition.
type Notifier interface {
	PartitionCommitted(ctx context.Context, ev domain.PartitionCommitted) error
}

// CollectorOptions wires a DailyCollector.
type CollectorOptions struct {
	State   store.StateStore
	Writer  store.PartitionWriter
	Symbols []string

	Primary       BarSource
	Secondary     BarSource
	CourtesyPause time.Duration

	// BackfillYears is how far back a first run starts.
	BackfillYears int
	// Location decides which calendar day "today" is. Defaults to UTC.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time

	Recorder Recorder
	Notifier Notifier
	Logger   *slog.Logger
}

// DailyCollector walks calendar days from the checkpoint to yesterday and
// writes one partition per trading day.
type DailyCollector struct {
	state    store.StateStore
	writer   store.PartitionWriter
	symbols  []string
	primary  BarSource
	fetcher  *Fetcher
	backfill int
	loc      *time.Location
	now      func() time.Time
	recorder Recorder
	notifier Notifier
	log      *slog.Logger
}

// NewDailyCollector creates a DailyCollector. Sources and caches are owned
// by the collector for the lifetime of the value; build a fresh one per run.
func NewDailyCollector(opts CollectorOptions) *DailyCollector {
	c := &DailyCollector{
		state:    opts.State,
		writer:   opts.Writer,
		symbols:  append([]string(nil), opts.Symbols...),
		primary:  opts.Primary,
		fetcher:  NewFetcher(opts.Primary, opts.Secondary, opts.CourtesyPause),
		backfill: opts.BackfillYears,
		loc:      opts.Location,
		now:      opts.Now,
		recorder: opts.Recorder,
		notifier: opts.Notifier,
		log:      opts.Logger,
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("gatherer", c.Name())
	return c
}

// Name returns the gatherer identifier.
func (c *DailyCollector) Name() string { return "us-stock-daily" }

// Run performs one collection pass. A rate-limited run is not an error.
func (c *DailyCollector) Run(ctx context.Context) error {
	outcome, err := c.Collect(ctx)
	if outcome == domain.OutcomeAborted {
		return err
	}
	return nil
}

// Collect performs one collection pass and reports how it ended. The
// checkpoint is read once at the start and written once on return, on
// every path.
func (c *DailyCollector) Collect(ctx context.Context) (outcome domain.RunOutcome, err error) {
	started := c.now()
	today := util.Today(started, c.loc)

	cp, err := gather.AcquireCheckpoint(ctx, c.state)
	if err != nil {
		c.log.Error("acquiring checkpoint failed", "error", err)
		c.recorder.RunFinished(domain.OutcomeAborted, time.Since(started))
		return domain.OutcomeAborted, err
	}
	defer func() {
		if rerr := cp.Release(ctx); rerr != nil {
			c.log.Error("releasing checkpoint failed", "error", rerr)
			if err == nil {
				outcome, err = domain.OutcomeAborted, rerr
			}
		}
		c.recorder.RunFinished(outcome, time.Since(started))
		c.log.Info("run finished", "outcome", outcome, "elapsed", time.Since(started).Round(time.Millisecond))
	}()

	resetDate, cooling, err := cp.Date(domain.KeyAVRateLimitResetDate)
	if err != nil {
		return domain.OutcomeAborted, err
	}
	if cooling && !today.After(resetDate) {
		c.log.Info("secondary source cooling down", "reset_date", util.FormatDate(resetDate), "today", util.FormatDate(today))
		return domain.OutcomeRateLimited, nil
	}

	start, err := c.startDate(cp, today)
	if err != nil {
		return domain.OutcomeAborted, err
	}
	if w, ok := c.primary.(WindowedSource); ok {
		windowStart, ok, err := cp.Date(domain.KeyNasdaqStartDate)
		if err != nil {
			return domain.OutcomeAborted, err
		}
		if !ok {
			windowStart = start
		}
		w.SetWindow(windowStart, today)
	}

	days := gather.DateRange{Start: start, End: today}.Days()
	c.log.Info("starting collection",
		"start", util.FormatDate(start),
		"today", util.FormatDate(today),
		"days", len(days),
		"symbols", len(c.symbols),
	)

	for _, date := range days {
		if err := ctx.Err(); err != nil {
			c.log.Error("run interrupted", "date", util.FormatDate(date), "error", err)
			return domain.OutcomeAborted, err
		}

		outcome, err := c.collectDate(ctx, cp, date, today)
		if err != nil || outcome != domain.OutcomeCompleted {
			return outcome, err
		}
	}
	return domain.OutcomeCompleted, nil
}

// startDate resumes after lastAddedDate, or begins a backfill and records
// its first day as nasdaqStartDate.
func (c *DailyCollector) startDate(cp *gather.Checkpoint, today time.Time) (time.Time, error) {
	last, ok, err := cp.Date(domain.KeyLastAddedDate)
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return util.AddDays(last, 1), nil
	}
	start := today.AddDate(-c.backfill, 0, -1)
	cp.SetDate(domain.KeyNasdaqStartDate, start)
	c.log.Info("no checkpoint, starting backfill", "start", util.FormatDate(start), "years", c.backfill)
	return start, nil
}

// collectDate fetches every symbol for date and commits the partition.
// OutcomeCompleted here means "continue with the next date".
func (c *DailyCollector) collectDate(ctx context.Context, cp *gather.Checkpoint, date, today time.Time) (domain.RunOutcome, error) {
	records := make([]domain.DailyPriceRecord, 0, len(c.symbols))
	traded, sentinels := 0, 0

	for _, symbol := range c.symbols {
		rec, origin, err := c.fetcher.Fetch(ctx, date, symbol)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoDataForDate):
			rec = domain.SentinelRecord(date, symbol)
		case errors.Is(err, ErrRateLimited):
			cp.SetDate(domain.KeyAVRateLimitResetDate, today)
			c.log.Warn("secondary source rate limited", "date", util.FormatDate(date), "symbol", symbol)
			return domain.OutcomeRateLimited, nil
		default:
			err = fmt.Errorf("fetching %s for %s: %w", symbol, util.FormatDate(date), err)
			c.log.Error("fetch failed", "date", util.FormatDate(date), "symbol", symbol, "error", err)
			return domain.OutcomeAborted, err
		}

		c.recorder.SymbolFetched(string(origin))
		if origin.Traded() {
			traded++
		} else {
			sentinels++
		}
		c.log.Log(ctx, util.LevelTrace, "symbol collected",
			"date", util.FormatDate(date),
			"symbol", symbol,
			"origin", origin,
			"close", rec.Close.String(),
		)
		records = append(records, rec)
	}

	if traded == 0 {
		c.recorder.DateSkipped()
		c.log.Debug("no trading data, skipping date", "date", util.FormatDate(date))
		return domain.OutcomeCompleted, nil
	}

	if err := c.writer.WritePartition(ctx, date, records); err != nil {
		c.log.Error("writing partition failed", "date", util.FormatDate(date), "error", err)
		return domain.OutcomeAborted, err
	}
	if err := cp.AdvanceLastAddedDate(date); err != nil {
		c.log.Error("advancing checkpoint failed", "date", util.FormatDate(date), "error", err)
		return domain.OutcomeAborted, err
	}
	c.recorder.DateCommitted(len(records), sentinels)

	ev := domain.PartitionCommitted{
		Date:        date,
		Key:         store.PartitionKey(date),
		Records:     len(records),
		Sentinels:   sentinels,
		CommittedAt: c.now().UTC(),
	}
	if err := c.notifier.PartitionCommitted(ctx, ev); err != nil {
		c.log.Warn("partition notification failed", "date", util.FormatDate(date), "error", err)
	}

	c.log.Info("date committed",
		"date", util.FormatDate(date),
		"records", len(records),
		"traded", traded,
		"sentinels", sentinels,
	)
	return domain.OutcomeCompleted, nil
}

type nopRecorder struct{}

func (nopRecorder) SymbolFetched(string) {}
func (nopRecorder) DateCommitted(int, int) {}
func (nopRecorder) DateSkipped() {}
func (nopRecorder) RunFinished(domain.RunOutcome, time.Duration) {}

type nopNotifier struct{}

func (nopNotifier) PartitionCommitted(context.Context, domain.PartitionCommitted) error { return nil }
