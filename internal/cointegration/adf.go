package cointegration

import (
	"fmt"
	"math"
)

// adfMinObservations is the fewest spread points the lag-1 ADF regression
// accepts; below this the unit-root test is skipped and the pair is treated
// as not cointegrated.
const adfMinObservations = 10

// ADFResult is the outcome of an augmented Dickey-Fuller test with one
// lagged difference and a constant term.
type ADFResult struct {
	Statistic  float64
	Critical1  float64
	Critical5  float64
	Critical10 float64

	// Stationary is the 5% decision, equivalent to p-value <= 0.05
	Stationary bool
}

// adfTest runs the lag-1 augmented Dickey-Fuller regression
//
//	dy[t] = c + gamma*y[t-1] + delta*dy[t-1] + e[t]
//
// and compares the t-statistic of gamma against MacKinnon finite-sample
// critical values.
func adfTest(y []float64) (ADFResult, error) {
	n := len(y)
	if n < adfMinObservations {
		return ADFResult{}, fmt.Errorf("adf test needs at least %d observations, got %d", adfMinObservations, n)
	}

	// Observations start at t=2 so both the lagged level and the lagged
	// difference exist
	m := n - 2
	var xtx [3][3]float64
	var xty [3]float64
	for t := 2; t < n; t++ {
		dy := y[t] - y[t-1]
		row := [3]float64{1, y[t-1], y[t-1] - y[t-2]}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				xtx[i][j] += row[i] * row[j]
			}
			xty[i] += row[i] * dy
		}
	}

	beta, inv, ok := solve3x3(xtx, xty)
	if !ok {
		return ADFResult{}, fmt.Errorf("adf regression is singular")
	}

	// Residual variance with 3 estimated parameters
	dof := m - 3
	if dof < 1 {
		return ADFResult{}, fmt.Errorf("adf test has no residual degrees of freedom")
	}
	var rss float64
	for t := 2; t < n; t++ {
		dy := y[t] - y[t-1]
		fitted := beta[0] + beta[1]*y[t-1] + beta[2]*(y[t-1]-y[t-2])
		resid := dy - fitted
		rss += resid * resid
	}
	sigma2 := rss / float64(dof)

	seGamma := math.Sqrt(sigma2 * inv[1][1])
	if seGamma == 0 || math.IsNaN(seGamma) {
		return ADFResult{}, fmt.Errorf("adf test has degenerate standard error")
	}

	result := ADFResult{
		Statistic:  beta[1] / seGamma,
		Critical1:  mackinnonCritical(m, -3.43035, -6.5393, -16.786, -79.433),
		Critical5:  mackinnonCritical(m, -2.86154, -2.8903, -4.234, -40.04),
		Critical10: mackinnonCritical(m, -2.56677, -1.5384, -2.809, 0),
	}
	result.Stationary = result.Statistic <= result.Critical5
	return result, nil
}

// mackinnonCritical evaluates the MacKinnon (2010) response surface for a
// Dickey-Fuller critical value at sample size t
func mackinnonCritical(t int, b0, b1, b2, b3 float64) float64 {
	ft := float64(t)
	return b0 + b1/ft + b2/(ft*ft) + b3/(ft*ft*ft)
}

// solve3x3 solves ax = b by explicit inversion, returning the solution and
// the inverse (needed for coefficient standard errors)
func solve3x3(a [3][3]float64, b [3]float64) ([3]float64, [3][3]float64, bool) {
	det := a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
	if math.Abs(det) < 1e-12 || math.IsNaN(det) {
		return [3]float64{}, [3][3]float64{}, false
	}

	var inv [3][3]float64
	inv[0][0] = (a[1][1]*a[2][2] - a[1][2]*a[2][1]) / det
	inv[0][1] = (a[0][2]*a[2][1] - a[0][1]*a[2][2]) / det
	inv[0][2] = (a[0][1]*a[1][2] - a[0][2]*a[1][1]) / det
	inv[1][0] = (a[1][2]*a[2][0] - a[1][0]*a[2][2]) / det
	inv[1][1] = (a[0][0]*a[2][2] - a[0][2]*a[2][0]) / det
	inv[1][2] = (a[0][2]*a[1][0] - a[0][0]*a[1][2]) / det
	inv[2][0] = (a[1][0]*a[2][1] - a[1][1]*a[2][0]) / det
	inv[2][1] = (a[0][1]*a[2][0] - a[0][0]*a[2][1]) / det
	inv[2][2] = (a[0][0]*a[1][1] - a[0][1]*a[1][0]) / det

	var x [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			x[i] += inv[i][j] * b[j]
		}
	}
	return x, inv, true
}
