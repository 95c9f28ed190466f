// Package engine runs the trading loop: refresh models, reconcile
// positions against the broker, evaluate signals, and place orders.
package engine

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tylertayyk/pairs-trading/internal/cache"
	"github.com/tylertayyk/pairs-trading/internal/cointegration"
	"github.com/tylertayyk/pairs-trading/internal/config"
	"github.com/tylertayyk/pairs-trading/internal/models"
	"github.com/tylertayyk/pairs-trading/internal/risk"
	"github.com/tylertayyk/pairs-trading/internal/series"
	"github.com/tylertayyk/pairs-trading/internal/signal"
	"github.com/tylertayyk/pairs-trading/internal/store"
)

// MarketData supplies candles and pricing.
type MarketData interface {
	GetCandles(ctx context.Context, instrument string, from time.Time) (*models.CandleSeries, error)
	GetQuote(ctx context.Context, instrument string) (*models.Quote, error)
}

// Broker places and closes orders and reports open trades.
type Broker interface {
	GetOpenTrades(ctx context.Context, instrument string) ([]models.OpenTrade, error)
	CreateMarketOrder(ctx context.Context, instrument string, units int64) error
	ClosePosition(ctx context.Context, instrument string, side models.PositionSide) error
}

// StateStore persists the in-trade pair set between runs.
type StateStore interface {
	LoadInTradeSet() (map[string]bool, error)
	SaveInTradeSet(map[string]bool) error
}

// Engine drives the decision loop over a fixed pair universe.
type Engine struct {
	cfg        *config.Config
	log        *zap.Logger
	market     MarketData
	broker     Broker
	stateStore StateStore
	models     *store.ModelStore
	risk       *risk.Manager
	cache      *cache.Cache
	selected   []models.Pair

	mu      sync.Mutex
	inTrade map[string]bool
}

// New assembles an engine over a selected pair universe. The in-trade
// set is loaded from the state store so a restart resumes exit
// management for open spreads.
func New(cfg *config.Config, log *zap.Logger, market MarketData, broker Broker, stateStore StateStore, modelStore *store.ModelStore, riskManager *risk.Manager, quoteCache *cache.Cache, selected []models.Pair) (*Engine, error) {
	inTrade, err := stateStore.LoadInTradeSet()
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		log:        log,
		market:     market,
		broker:     broker,
		stateStore: stateStore,
		models:     modelStore,
		risk:       riskManager,
		cache:      quoteCache,
		selected:   selected,
		inTrade:    inTrade,
	}, nil
}

// trackedPairs derives the pairs to manage this cycle. Every pair with
// an open spread is tracked, whether or not it is still selected, so
// its exit is always managed. Selected pairs join only while neither of
// their legs is committed elsewhere: an instrument never participates
// in two simultaneous spreads. Recomputed at the top of every cycle.
func (e *Engine) trackedPairs() []models.Pair {
	e.mu.Lock()
	open := make(map[string]bool, len(e.inTrade))
	for key, in := range e.inTrade {
		if in {
			open[key] = true
		}
	}
	e.mu.Unlock()

	tracked := make([]models.Pair, 0, len(e.selected)+len(open))
	conflicts := func(p models.Pair) bool {
		for _, taken := range tracked {
			if p.SharesInstrument(taken) {
				return true
			}
		}
		return false
	}

	// Open spreads first, in universe order
	for _, p := range e.selected {
		if open[p.Key()] {
			tracked = append(tracked, p)
			delete(open, p.Key())
		}
	}

	// Open spreads whose pair left the selected universe
	orphans := make([]string, 0, len(open))
	for key := range open {
		orphans = append(orphans, key)
	}
	sort.Strings(orphans)
	for _, key := range orphans {
		p, err := models.ParsePair(key)
		if err != nil {
			e.log.Warn("Dropping malformed in-trade key", zap.String("key", key))
			continue
		}
		tracked = append(tracked, p)
	}

	// Flat candidates, skipping any with a committed instrument
	for _, p := range e.selected {
		if conflicts(p) {
			continue
		}
		tracked = append(tracked, p)
	}

	return tracked
}

// TrackedInstruments returns the deduplicated instruments across the
// currently tracked pairs, sorted for stable iteration.
func (e *Engine) TrackedInstruments() []string {
	seen := make(map[string]bool)
	for _, p := range e.trackedPairs() {
		seen[p.Leg1] = true
		seen[p.Leg2] = true
	}
	out := make([]string, 0, len(seen))
	for instrument := range seen {
		out = append(out, instrument)
	}
	sort.Strings(out)
	return out
}

// Run executes cycles at the configured poll interval until the context
// is cancelled. The first cycle runs immediately.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("Engine starting",
		zap.Int("pairs", len(e.selected)),
		zap.Duration("poll_interval", e.cfg.PollInterval),
		zap.Bool("practice", e.cfg.IsPracticeAccount()),
	)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	cycles := 0
	for {
		if err := e.RunCycle(ctx); err != nil {
			e.log.Error("Engine halting", zap.Error(err))
			return err
		}
		cycles++
		if cycles%100 == 0 {
			e.log.Info("Engine heartbeat", zap.Int("cycles", cycles), zap.Int("in_trade", e.inTradeCount()))
		}

		select {
		case <-ctx.Done():
			e.log.Info("Engine stopping", zap.Int("cycles", cycles))
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle refreshes stale models concurrently, then walks the pair
// universe making one decision per pair. A failure in one pair never
// blocks the others; the one exception is a state persistence failure
// after orders were placed, which halts the engine because local state
// diverged from the broker.
func (e *Engine) RunCycle(ctx context.Context) error {
	now := time.Now()
	pairs := e.trackedPairs()
	e.refreshModels(ctx, now, pairs)

	for _, pair := range pairs {
		if ctx.Err() != nil {
			return nil
		}
		if err := e.processPair(ctx, pair); err != nil {
			var saveErr *StateSaveError
			if errors.As(err, &saveErr) {
				return saveErr
			}
			e.log.Warn("Pair cycle failed", zap.String("pair", pair.String()), zap.Error(err))
		}
	}
	return nil
}

// refreshModels refits every tracked pair whose model is missing or
// expired. Distinct pairs refresh in parallel; the store serializes
// same-pair refreshes.
func (e *Engine) refreshModels(ctx context.Context, now time.Time, pairs []models.Pair) {
	var wg sync.WaitGroup
	for _, pair := range pairs {
		if !e.models.NeedsRefresh(pair, now) {
			continue
		}
		wg.Add(1)
		go func(p models.Pair) {
			defer wg.Done()
			model, err := e.models.Refresh(p, now, func(p models.Pair) (*models.CointegrationModel, error) {
				return e.fitPair(ctx, p, now)
			})
			if err != nil {
				e.log.Warn("Model refresh failed", zap.String("pair", p.String()), zap.Error(err))
				return
			}
			e.log.Info("Model refreshed",
				zap.String("pair", p.String()),
				zap.Float64("beta", model.Beta),
				zap.Float64("spread_std", model.SpreadStd),
				zap.Bool("cointegrated", model.Cointegrated),
				zap.Int("observations", model.Observations),
			)
		}(pair)
	}
	wg.Wait()
}

// fitPair fetches both legs' candle histories, aligns them by timestamp,
// and fits a fresh model.
func (e *Engine) fitPair(ctx context.Context, pair models.Pair, now time.Time) (*models.CointegrationModel, error) {
	from := now.Add(-e.cfg.TrainingWindow)

	series1, err := e.candlesFor(ctx, pair.Leg1, from)
	if err != nil {
		return nil, err
	}
	series2, err := e.candlesFor(ctx, pair.Leg2, from)
	if err != nil {
		return nil, err
	}

	aligned, err := series.Align(pair, series1, series2, e.cfg.MinAlignedCandles)
	if err != nil {
		return nil, err
	}

	return cointegration.Fit(pair, aligned, now)
}

// candlesFor serves candle fetches through the cache so pairs sharing an
// instrument hit the API once per refresh window.
func (e *Engine) candlesFor(ctx context.Context, instrument string, from time.Time) (*models.CandleSeries, error) {
	if cached, found := e.cache.GetCandles(instrument); found {
		return cached, nil
	}
	fetched, err := e.market.GetCandles(ctx, instrument, from)
	if err != nil {
		return nil, err
	}
	e.cache.SetCandles(instrument, fetched)
	return fetched, nil
}

// quoteFor serves pricing through the short-TTL cache.
func (e *Engine) quoteFor(ctx context.Context, instrument string) (*models.Quote, error) {
	if cached, found := e.cache.GetQuote(instrument); found {
		return cached, nil
	}
	fetched, err := e.market.GetQuote(ctx, instrument)
	if err != nil {
		return nil, err
	}
	e.cache.SetQuote(instrument, fetched)
	return fetched, nil
}

// processPair makes and executes one decision for one pair.
func (e *Engine) processPair(ctx context.Context, pair models.Pair) error {
	model, ok := e.models.Get(pair)
	if !ok {
		// No model yet; nothing to decide.
		return nil
	}

	quote1, err := e.quoteFor(ctx, pair.Leg1)
	if err != nil {
		return err
	}
	quote2, err := e.quoteFor(ctx, pair.Leg2)
	if err != nil {
		return err
	}

	trades1, err := e.broker.GetOpenTrades(ctx, pair.Leg1)
	if err != nil {
		return err
	}
	trades2, err := e.broker.GetOpenTrades(ctx, pair.Leg2)
	if err != nil {
		return err
	}

	position, err := Reconcile(pair, trades1, trades2)
	if err != nil {
		e.log.Error("Position blocked", zap.String("pair", pair.String()), zap.Error(err))
		return nil
	}
	e.reconcileInTrade(pair, position)

	logPrice1 := math.Log(quote1.Mid().InexactFloat64())
	logPrice2 := math.Log(quote2.Mid().InexactFloat64())

	eval, err := signal.Evaluate(model, logPrice1, logPrice2, position, signal.Thresholds{
		Entry: e.cfg.EntryZScore,
		Exit:  e.cfg.ExitZScore,
	})
	if err != nil {
		return err
	}

	e.log.Debug("Pair evaluated",
		zap.String("pair", pair.String()),
		zap.String("position", string(position)),
		zap.Float64("zscore", eval.ZScore),
		zap.String("signal", string(eval.Signal)),
	)

	switch eval.Signal {
	case models.SignalEnterLong, models.SignalEnterShort:
		// An expired model that survived a failed refresh still serves
		// exits, but never opens a new position.
		if e.models.NeedsRefresh(pair, time.Now()) {
			e.log.Warn("Entry skipped on stale model", zap.String("pair", pair.String()))
			return nil
		}
		return e.enterSpread(ctx, eval.Signal, pair, quote1, quote2)
	case models.SignalExitLong, models.SignalExitShort:
		return e.exitSpread(ctx, eval.Signal, pair)
	default:
		return nil
	}
}

// reconcileInTrade realigns the persisted in-trade set with what the
// broker actually reports, covering positions closed out-of-band.
func (e *Engine) reconcileInTrade(pair models.Pair, position models.PositionState) {
	e.mu.Lock()
	recorded := e.inTrade[pair.Key()]
	e.mu.Unlock()

	actual := position == models.PositionLongSpread || position == models.PositionShortSpread
	if recorded == actual {
		return
	}

	e.log.Info("In-trade set corrected from broker state",
		zap.String("pair", pair.String()),
		zap.Bool("recorded", recorded),
		zap.Bool("actual", actual),
	)
	if err := e.markInTrade(pair, actual); err != nil {
		e.log.Warn("Failed to persist in-trade correction", zap.String("pair", pair.String()), zap.Error(err))
	}
}

// InTradePairs returns the keys of pairs currently marked in trade.
func (e *Engine) InTradePairs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]string, 0, len(e.inTrade))
	for k, in := range e.inTrade {
		if in {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (e *Engine) inTradeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inTrade)
}
