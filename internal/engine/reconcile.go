package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tylertayyk/pairs-trading/internal/models"
)

// InconsistentPositionError marks a pair whose broker-side legs do not
// form a recognizable spread position. The engine refuses to place any
// order for such a pair until an operator resolves it.
type InconsistentPositionError struct {
	Pair      models.Pair
	Leg1Units decimal.Decimal
	Leg2Units decimal.Decimal
}

func (e *InconsistentPositionError) Error() string {
	return fmt.Sprintf("inconsistent position for %s: %s=%s units, %s=%s units",
		e.Pair, e.Pair.Leg1, e.Leg1Units, e.Pair.Leg2, e.Leg2Units)
}

// Reconcile derives the pair's position state from the broker's open
// trades each cycle. The broker is the source of truth: nothing here is
// read from or written to local state.
//
// A long spread is leg1 short and leg2 long; a short spread is the
// mirror. Both legs flat is flat. Every other combination, including a
// single open leg, is inconsistent.
func Reconcile(pair models.Pair, leg1Trades, leg2Trades []models.OpenTrade) (models.PositionState, error) {
	net1 := netUnits(leg1Trades)
	net2 := netUnits(leg2Trades)

	switch {
	case net1.IsZero() && net2.IsZero():
		return models.PositionFlat, nil
	case net1.IsNegative() && net2.IsPositive():
		return models.PositionLongSpread, nil
	case net1.IsPositive() && net2.IsNegative():
		return models.PositionShortSpread, nil
	default:
		return models.PositionInconsistent, &InconsistentPositionError{
			Pair:      pair,
			Leg1Units: net1,
			Leg2Units: net2,
		}
	}
}

func netUnits(trades []models.OpenTrade) decimal.Decimal {
	net := decimal.Zero
	for _, t := range trades {
		net = net.Add(t.Units)
	}
	return net
}
