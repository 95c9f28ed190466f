package cointegration

import (
	"fmt"
	"math"
	"time"

	"github.com/tylertayyk/pairs-trading/internal/models"
	"github.com/tylertayyk/pairs-trading/internal/series"
)

// ModelFitError signals a degenerate regression (zero variance in the
// regressor or too few points). The pair is skipped and retried next cycle.
type ModelFitError struct {
	Pair   models.Pair
	Reason string
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("model fit for %s: %s", e.Pair, e.Reason)
}

// Fit regresses leg2 log prices on leg1 log prices by ordinary least squares
// with an intercept, derives the residual spread, and runs the unit-root
// test that decides whether the pair is tradeable.
//
// The spread standard deviation is the unbiased sample estimator (n-1
// denominator). A spread too short for the unit-root test yields a model
// with Cointegrated=false rather than an error, so an existing position can
// still be exited against a short-history model.
func Fit(pair models.Pair, aligned *series.AlignedLogPrices, now time.Time) (*models.CointegrationModel, error) {
	n := aligned.Len()
	if n < 2 {
		return nil, &ModelFitError{Pair: pair, Reason: fmt.Sprintf("%d observations, need at least 2", n)}
	}

	alpha, beta, err := ols(aligned.X, aligned.Y)
	if err != nil {
		return nil, &ModelFitError{Pair: pair, Reason: err.Error()}
	}

	spread := make([]float64, n)
	var sum float64
	for i := 0; i < n; i++ {
		spread[i] = aligned.Y[i] - alpha - beta*aligned.X[i]
		sum += spread[i]
	}
	mean := sum / float64(n)

	var sumSq float64
	for _, s := range spread {
		d := s - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(n-1))

	model := &models.CointegrationModel{
		Pair:         pair,
		FittedAt:     now,
		Alpha:        alpha,
		Beta:         beta,
		SpreadMean:   mean,
		SpreadStd:    std,
		Observations: n,
	}

	// Short spreads skip the test and stay untradeable for entries
	if n >= adfMinObservations {
		if result, err := adfTest(spread); err == nil {
			model.Cointegrated = result.Stationary
		}
	}

	return model, nil
}

// ols fits y = alpha + beta*x by the closed-form normal equations
func ols(x, y []float64) (alpha, beta float64, err error) {
	n := float64(len(x))
	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var covXY, varX float64
	for i := range x {
		dx := x[i] - meanX
		covXY += dx * (y[i] - meanY)
		varX += dx * dx
	}

	if varX < 1e-12 {
		return 0, 0, fmt.Errorf("zero variance in regressor")
	}

	beta = covXY / varX
	alpha = meanY - beta*meanX
	return alpha, beta, nil
}
