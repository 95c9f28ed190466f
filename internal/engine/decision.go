package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tylertayyk/pairs-trading/internal/models"
)

// StateSaveError marks a failed in-trade set write after orders were
// already placed. Local state no longer matches the broker, so the
// engine treats this as fatal rather than continuing with a stale view.
type StateSaveError struct {
	Pair models.Pair
	Err  error
}

func (e *StateSaveError) Error() string {
	return fmt.Sprintf("failed to persist in-trade state for %s after order placement: %v", e.Pair, e.Err)
}

func (e *StateSaveError) Unwrap() error {
	return e.Err
}

// legOrder is one half of a spread order, sized and signed.
type legOrder struct {
	Instrument string
	Units      int64
}

// sizeUnits converts the per-leg notional into whole units at the given
// price, using the quote-to-home conversion factor. Shorts are costed at
// the ask and longs at the bid since those are the closeout prices.
func sizeUnits(amount float64, price, conversion decimal.Decimal) int64 {
	cost := price.Mul(conversion)
	if !cost.IsPositive() {
		return 0
	}
	return decimal.NewFromFloat(amount).Div(cost).IntPart()
}

// entryOrders sizes both legs of a spread entry. A long spread shorts
// leg1 and buys leg2; a short spread is the mirror.
func (e *Engine) entryOrders(sig models.Signal, pair models.Pair, quote1, quote2 *models.Quote) (legOrder, legOrder, error) {
	amount := e.cfg.TradeAmount

	var order1, order2 legOrder
	switch sig {
	case models.SignalEnterLong:
		order1 = legOrder{pair.Leg1, -sizeUnits(amount, quote1.Ask, quote1.ConversionFactor)}
		order2 = legOrder{pair.Leg2, sizeUnits(amount, quote2.Bid, quote2.ConversionFactor)}
	case models.SignalEnterShort:
		order1 = legOrder{pair.Leg1, sizeUnits(amount, quote1.Bid, quote1.ConversionFactor)}
		order2 = legOrder{pair.Leg2, -sizeUnits(amount, quote2.Ask, quote2.ConversionFactor)}
	default:
		return legOrder{}, legOrder{}, fmt.Errorf("signal %s is not an entry", sig)
	}

	check := e.risk.CheckEntry(quote1, quote2, abs64(order1.Units), abs64(order2.Units))
	if !check.Passed {
		return legOrder{}, legOrder{}, fmt.Errorf("risk check failed for %s: %s", pair, check.Reason)
	}
	for _, w := range check.Warnings {
		e.log.Warn("Risk warning", zap.String("pair", pair.String()), zap.String("warning", w))
	}

	return order1, order2, nil
}

// enterSpread places both legs of an entry and records the pair as in
// trade. If the second leg fails after the first filled, the error is
// surfaced without touching the in-trade set; the next cycle's
// reconciliation will see the lone leg and block the pair.
func (e *Engine) enterSpread(ctx context.Context, sig models.Signal, pair models.Pair, quote1, quote2 *models.Quote) error {
	order1, order2, err := e.entryOrders(sig, pair, quote1, quote2)
	if err != nil {
		return err
	}

	e.log.Info("Entering spread",
		zap.String("pair", pair.String()),
		zap.String("signal", string(sig)),
		zap.Int64(order1.Instrument, order1.Units),
		zap.Int64(order2.Instrument, order2.Units),
	)

	if err := e.broker.CreateMarketOrder(ctx, order1.Instrument, order1.Units); err != nil {
		return fmt.Errorf("first leg failed for %s: %w", pair, err)
	}
	if err := e.broker.CreateMarketOrder(ctx, order2.Instrument, order2.Units); err != nil {
		return fmt.Errorf("second leg failed for %s after first leg filled: %w", pair, err)
	}

	return e.markInTrade(pair, true)
}

// exitSpread closes both sides of an open spread and clears the pair
// from the in-trade set.
func (e *Engine) exitSpread(ctx context.Context, sig models.Signal, pair models.Pair) error {
	var side1, side2 models.PositionSide
	switch sig {
	case models.SignalExitLong:
		side1, side2 = models.SideShort, models.SideLong
	case models.SignalExitShort:
		side1, side2 = models.SideLong, models.SideShort
	default:
		return fmt.Errorf("signal %s is not an exit", sig)
	}

	e.log.Info("Exiting spread", zap.String("pair", pair.String()), zap.String("signal", string(sig)))

	if err := e.broker.ClosePosition(ctx, pair.Leg1, side1); err != nil {
		return fmt.Errorf("closing %s failed for %s: %w", pair.Leg1, pair, err)
	}
	if err := e.broker.ClosePosition(ctx, pair.Leg2, side2); err != nil {
		return fmt.Errorf("closing %s failed for %s after %s closed: %w", pair.Leg2, pair, pair.Leg1, err)
	}

	return e.markInTrade(pair, false)
}

// markInTrade updates the in-trade set and persists it. Orders are
// already live at this point, so a persistence failure is fatal.
func (e *Engine) markInTrade(pair models.Pair, inTrade bool) error {
	e.mu.Lock()
	if inTrade {
		e.inTrade[pair.Key()] = true
	} else {
		delete(e.inTrade, pair.Key())
	}
	snapshot := make(map[string]bool, len(e.inTrade))
	for k, v := range e.inTrade {
		snapshot[k] = v
	}
	e.mu.Unlock()

	if err := e.stateStore.SaveInTradeSet(snapshot); err != nil {
		return &StateSaveError{Pair: pair, Err: err}
	}
	return nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
