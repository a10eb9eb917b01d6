// Package oracle runs the background loop that drives markets through their
// lifecycle: it broadcasts pool creations, locks pools past their deadline,
// resolves locked pools from metric data, and mirrors on-chain stake
// counters into the local store.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Jemiiah/Maniifold/internal/domain"
	"github.com/Jemiiah/Maniifold/internal/ledger"
	"github.com/Jemiiah/Maniifold/internal/metric"
	"github.com/Jemiiah/Maniifold/internal/notify"
)

// Executor is the ledger surface the worker needs. *ledger.Client satisfies
// it; tests substitute fakes.
type Executor interface {
	SubmitExecution(ctx context.Context, function string, inputs []ledger.Value, fee uint64) (string, error)
	QueryMapping(ctx context.Context, mapping, key string) (string, error)
}

// Config tunes the worker loop. Zero values fall back to the defaults.
type Config struct {
	// Interval is the tick period. Default 60s.
	Interval time.Duration

	// SubmitDelay spaces out consecutive create_pool submissions so the
	// execution endpoint is not hammered. Default 5s.
	SubmitDelay time.Duration

	// Fees are per-function execution fees in microcredits. Default 100_000.
	CreateFee  uint64
	LockFee    uint64
	ResolveFee uint64
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 60 * time.Second
	}
	if c.SubmitDelay <= 0 {
		c.SubmitDelay = 5 * time.Second
	}
	if c.CreateFee == 0 {
		c.CreateFee = 100_000
	}
	if c.LockFee == 0 {
		c.LockFee = 100_000
	}
	if c.ResolveFee == 0 {
		c.ResolveFee = 100_000
	}
	return c
}

// Worker advances markets through pending -> onchain -> locked -> resolved.
// One Worker runs per deployment; a tick never overlaps the previous one.
type Worker struct {
	cfg      Config
	markets  domain.MarketStore
	ledger   Executor
	metrics  *metric.Registry
	bus      domain.EventBus  // optional
	notifier *notify.Notifier // optional
	logger   *slog.Logger

	tickMu sync.Mutex

	// Injected for deterministic tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewWorker creates a Worker. bus and notifier may be nil when event fan-out
// or operator alerts are not configured.
func NewWorker(
	cfg Config,
	markets domain.MarketStore,
	exec Executor,
	metrics *metric.Registry,
	bus domain.EventBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		cfg:      cfg.withDefaults(),
		markets:  markets,
		ledger:   exec,
		metrics:  metrics,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "oracle_worker")),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run ticks immediately, then on a fixed interval until ctx is cancelled.
// The tick in flight at cancellation finishes before Run returns.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", slog.Duration("interval", w.cfg.Interval))

	w.Tick(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one pass of the four phases in order. If the previous tick is
// still running the call returns immediately; a slow tick must never stack
// behind itself.
func (w *Worker) Tick(ctx context.Context) {
	if !w.tickMu.TryLock() {
		w.logger.Warn("previous tick still running, skipping")
		return
	}
	defer w.tickMu.Unlock()

	w.syncStats(ctx)
	w.advancePending(ctx)
	w.advanceOnChain(ctx)
	w.advanceLocked(ctx)
}

// syncStats mirrors the on-chain stake counters for every known market.
// Markets without an on-chain pool yet are expected and skipped silently;
// all other failures are logged per market and never abort the pass.
func (w *Worker) syncStats(ctx context.Context) {
	markets, err := w.markets.List(ctx)
	if err != nil {
		w.logger.Error("sync: list markets", slog.String("error", err.Error()))
		return
	}

	for _, m := range markets {
		record, err := w.ledger.QueryMapping(ctx, ledger.PoolsMapping, m.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			w.logger.Warn("sync: query pool failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		stats, err := ledger.ParsePoolStats(record)
		if err != nil {
			w.logger.Warn("sync: parse pool record failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if stats.TotalStaked == m.TotalStaked &&
			stats.OptionAStakes == m.OptionAStakes &&
			stats.OptionBStakes == m.OptionBStakes {
			continue
		}

		if err := w.markets.UpdateStats(ctx, m.ID, stats); err != nil {
			w.logger.Warn("sync: update stats failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		w.publishEvent(ctx, domain.EventStatsSynced, m.ID, func(ev *domain.MarketEvent) {
			ev.Stats = &stats
		})

		w.logger.Debug("sync: stats updated",
			slog.String("market_id", m.ID),
			slog.Uint64("total_staked", stats.TotalStaked),
		)
	}
}

// advancePending broadcasts create_pool for every pending market and marks
// it onchain once the execution is accepted. A pool already present
// on-chain (a prior submission landed but the status write was lost) is
// detected and the status repaired without a duplicate submission.
func (w *Worker) advancePending(ctx context.Context) {
	pending, err := w.markets.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		w.logger.Error("create: list pending", slog.String("error", err.Error()))
		return
	}

	for i, m := range pending {
		if i > 0 {
			w.sleep(ctx, w.cfg.SubmitDelay)
		}
		if ctx.Err() != nil {
			return
		}

		if record, err := w.ledger.QueryMapping(ctx, ledger.PoolsMapping, m.ID); err == nil {
			onChain, _ := ledger.PoolTitle(record)
			w.logger.Info("create: pool already on chain, repairing status",
				slog.String("market_id", m.ID),
				slog.String("onchain_title", onChain),
			)
			w.markOnChain(ctx, m, "")
			continue
		}

		title := m.Title
		if title == "" {
			title = "Market"
		}
		desc := m.Description
		if desc == "" {
			desc = "Prediction market"
		}

		inputs := []ledger.Value{
			ledger.Field(title),
			ledger.Field(desc),
			ledger.Array(ledger.Field(m.OptionA), ledger.Field(m.OptionB)),
			ledger.U64(uint64(m.Deadline)),
		}

		txID, err := w.ledger.SubmitExecution(ctx, ledger.FuncCreatePool, inputs, w.cfg.CreateFee)
		if err != nil {
			w.logger.Error("create: submission failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		w.logger.Info("create: pool broadcast",
			slog.String("market_id", m.ID),
			slog.String("tx_id", txID),
		)
		w.markOnChain(ctx, m, txID)
	}
}

// markOnChain records a successful (or repaired) creation.
func (w *Worker) markOnChain(ctx context.Context, m domain.Market, txID string) {
	if err := w.markets.SetStatus(ctx, m.ID, domain.StatusOnChain); err != nil {
		w.logger.Error("create: set status failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	w.publishEvent(ctx, domain.EventMarketOnChain, m.ID, func(ev *domain.MarketEvent) {
		ev.Status = domain.StatusOnChain
		ev.TxID = txID
	})
}

// advanceOnChain locks every on-chain market whose deadline has passed.
func (w *Worker) advanceOnChain(ctx context.Context) {
	onChain, err := w.markets.ListByStatus(ctx, domain.StatusOnChain)
	if err != nil {
		w.logger.Error("lock: list onchain", slog.String("error", err.Error()))
		return
	}

	now := w.now()
	for _, m := range onChain {
		if !m.DeadlinePassed(now) {
			continue
		}

		txID, err := w.ledger.SubmitExecution(ctx, ledger.FuncLockPool,
			[]ledger.Value{ledger.Raw(m.ID)}, w.cfg.LockFee)
		if err != nil {
			w.logger.Error("lock: submission failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := w.markets.SetStatus(ctx, m.ID, domain.StatusLocked); err != nil {
			w.logger.Error("lock: set status failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		w.logger.Info("lock: pool locked",
			slog.String("market_id", m.ID),
			slog.String("tx_id", txID),
		)
		w.publishEvent(ctx, domain.EventMarketLocked, m.ID, func(ev *domain.MarketEvent) {
			ev.Status = domain.StatusLocked
			ev.TxID = txID
		})
	}
}

// advanceLocked resolves every locked market whose metric produces a value.
// Markets whose metric has no value yet (transient provider failure, or the
// generic manual metric) simply wait for a later tick.
func (w *Worker) advanceLocked(ctx context.Context) {
	locked, err := w.markets.ListByStatus(ctx, domain.StatusLocked)
	if err != nil {
		w.logger.Error("resolve: list locked", slog.String("error", err.Error()))
		return
	}

	for _, m := range locked {
		strategy, err := w.metrics.Get(m.MetricType)
		if err != nil {
			w.logger.Error("resolve: unknown metric type",
				slog.String("market_id", m.ID),
				slog.String("metric", m.MetricType),
			)
			continue
		}

		value, ok := strategy.FetchValue(ctx)
		if !ok {
			w.logger.Debug("resolve: no value yet",
				slog.String("market_id", m.ID),
				slog.String("metric", m.MetricType),
			)
			continue
		}

		winner := domain.WinningOption(value, m.Threshold)

		txID, err := w.ledger.SubmitExecution(ctx, ledger.FuncResolvePool,
			[]ledger.Value{ledger.Raw(m.ID), ledger.U64(uint64(winner))}, w.cfg.ResolveFee)
		if err != nil {
			w.logger.Error("resolve: submission failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := w.markets.SetStatus(ctx, m.ID, domain.StatusResolved); err != nil {
			w.logger.Error("resolve: set status failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		w.logger.Info("resolve: pool resolved",
			slog.String("market_id", m.ID),
			slog.Float64("value", value),
			slog.Float64("threshold", m.Threshold),
			slog.Int("winning_option", winner),
			slog.String("tx_id", txID),
		)
		w.publishEvent(ctx, domain.EventMarketResolved, m.ID, func(ev *domain.MarketEvent) {
			ev.Status = domain.StatusResolved
			ev.WinningOption = winner
			ev.TxID = txID
		})
	}
}

// publishEvent fans a lifecycle event out to the bus and the notifier.
// Both are optional and both swallow their own failures; an event must
// never undo a state change that already happened.
func (w *Worker) publishEvent(ctx context.Context, eventType, marketID string, fill func(*domain.MarketEvent)) {
	ev := domain.NewMarketEvent(eventType, marketID)
	if fill != nil {
		fill(&ev)
	}

	if w.bus != nil {
		payload, err := json.Marshal(ev)
		if err == nil {
			if err := w.bus.Publish(ctx, domain.EventsChannel, payload); err != nil {
				w.logger.Warn("event publish failed",
					slog.String("event", eventType),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if w.notifier != nil {
		if err := w.notifier.MarketEvent(ctx, ev); err != nil {
			w.logger.Warn("notification failed",
				slog.String("event", eventType),
				slog.String("error", err.Error()),
			)
		}
	}
}
