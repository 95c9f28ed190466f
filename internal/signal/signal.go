// Package signal turns a fitted model and current prices into a trading
// decision with entry/exit hysteresis on the spread z-score.
package signal

import (
	"fmt"
	"math"

	"github.com/tylertayyk/pairs-trading/internal/models"
)

// DegenerateModelError marks a model whose spread deviation is not
// usable for a z-score.
type DegenerateModelError struct {
	Pair models.Pair
	Std  float64
}

func (e *DegenerateModelError) Error() string {
	return fmt.Sprintf("model for %s has non-positive spread deviation %v", e.Pair, e.Std)
}

// Evaluation is the outcome of one signal check.
type Evaluation struct {
	Signal models.Signal
	ZScore float64
	Spread float64
}

// Thresholds carries the hysteresis band. Exit must sit strictly inside
// entry so a position opened at |z| >= Entry is not closed on the next
// tick's noise.
type Thresholds struct {
	Entry float64
	Exit  float64
}

// Evaluate computes the z-score of the current log-price spread and maps
// it through the position-aware decision table.
//
// Entries require the model to be cointegrated; exits do not, so a pair
// whose relationship broke down after entry can still be unwound.
func Evaluate(model *models.CointegrationModel, logPrice1, logPrice2 float64, position models.PositionState, th Thresholds) (Evaluation, error) {
	spread := logPrice2 - model.Alpha - model.Beta*logPrice1

	if model.SpreadStd <= 0 || math.IsNaN(model.SpreadStd) {
		return Evaluation{Signal: models.SignalHold, Spread: spread},
			&DegenerateModelError{Pair: model.Pair, Std: model.SpreadStd}
	}

	z := (spread - model.SpreadMean) / model.SpreadStd
	eval := Evaluation{Signal: models.SignalHold, ZScore: z, Spread: spread}

	switch position {
	case models.PositionFlat:
		if !model.Cointegrated {
			return eval, nil
		}
		if z >= th.Entry {
			eval.Signal = models.SignalEnterShort
		} else if z <= -th.Entry {
			eval.Signal = models.SignalEnterLong
		}
	case models.PositionShortSpread:
		if z < th.Exit {
			eval.Signal = models.SignalExitShort
		}
	case models.PositionLongSpread:
		if z > -th.Exit {
			eval.Signal = models.SignalExitLong
		}
	case models.PositionInconsistent:
		// Order placement is blocked upstream; nothing to signal here.
	}

	return eval, nil
}
