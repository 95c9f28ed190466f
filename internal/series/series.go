package series

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/tylertayyk/pairs-trading/internal/models"
)

// InsufficientDataError signals that two candle series did not overlap on
// enough common timestamps to fit a model. The pair is skipped for the cycle.
type InsufficientDataError struct {
	Pair    models.Pair
	Aligned int
	Minimum int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient aligned data for %s: %d candles, need %d", e.Pair, e.Aligned, e.Minimum)
}

// AlignedLogPrices holds the log close prices of two instruments restricted
// to timestamps present in both raw series, in timestamp order. X is leg1,
// Y is leg2; both slices always have equal length.
type AlignedLogPrices struct {
	X []float64
	Y []float64

	// Most recent raw closes, kept for position sizing in price space
	LastClose1 decimal.Decimal
	LastClose2 decimal.Decimal
}

// Len returns the number of aligned observations
func (a *AlignedLogPrices) Len() int {
	return len(a.X)
}

// Align intersects two candle series on common timestamps and derives their
// log close price series. minPoints is the smallest usable intersection.
func Align(pair models.Pair, s1, s2 *models.CandleSeries, minPoints int) (*AlignedLogPrices, error) {
	// Index leg2 timestamps for the intersection
	byTime := make(map[int64]models.Candle, len(s2.Candles))
	for _, candle := range s2.Candles {
		byTime[candle.Time.UnixNano()] = candle
	}

	aligned := &AlignedLogPrices{
		X: make([]float64, 0, len(s1.Candles)),
		Y: make([]float64, 0, len(s1.Candles)),
	}

	// Walk leg1 in order so relative ordering is preserved
	for _, c1 := range s1.Candles {
		c2, ok := byTime[c1.Time.UnixNano()]
		if !ok {
			continue
		}
		close1 := c1.Close.InexactFloat64()
		close2 := c2.Close.InexactFloat64()
		if close1 <= 0 || close2 <= 0 {
			continue
		}
		aligned.X = append(aligned.X, math.Log(close1))
		aligned.Y = append(aligned.Y, math.Log(close2))
		aligned.LastClose1 = c1.Close
		aligned.LastClose2 = c2.Close
	}

	if aligned.Len() < minPoints {
		return nil, &InsufficientDataError{Pair: pair, Aligned: aligned.Len(), Minimum: minPoints}
	}

	return aligned, nil
}
