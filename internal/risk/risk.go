// Package risk performs pre-trade checks on quotes and leg sizes before
// any order reaches the broker.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tylertayyk/pairs-trading/internal/config"
	"github.com/tylertayyk/pairs-trading/internal/models"
)

// Manager handles risk checks for both legs of a spread trade
type Manager struct {
	cfg *config.Config
}

// NewManager creates a new risk manager
func NewManager(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg}
}

// CheckResult contains the result of a risk check
type CheckResult struct {
	Passed   bool
	Reason   string
	Warnings []string
}

// CheckSpread validates that a quote's bid-ask spread isn't too wide to
// trade on
func (m *Manager) CheckSpread(quote *models.Quote) CheckResult {
	if quote.Bid.IsZero() || quote.Ask.IsZero() {
		return CheckResult{
			Passed: false,
			Reason: fmt.Sprintf("Invalid quote for %s: missing bid or ask", quote.Instrument),
		}
	}

	spread := quote.Ask.Sub(quote.Bid)
	if spread.IsNegative() {
		return CheckResult{
			Passed: false,
			Reason: fmt.Sprintf("Crossed quote for %s: bid %s above ask %s",
				quote.Instrument, quote.Bid, quote.Ask),
		}
	}

	mid := quote.Mid()
	if mid.IsZero() {
		return CheckResult{
			Passed: false,
			Reason: fmt.Sprintf("Invalid quote for %s: mid price is zero", quote.Instrument),
		}
	}

	spreadPercent := spread.Div(mid).Mul(decimal.NewFromInt(100))
	maxSpread := decimal.NewFromFloat(m.cfg.MaxSpreadPercent)

	if spreadPercent.GreaterThan(maxSpread) {
		return CheckResult{
			Passed: false,
			Reason: fmt.Sprintf("%s spread %.4f%% exceeds maximum %.4f%%",
				quote.Instrument, spreadPercent.InexactFloat64(), maxSpread.InexactFloat64()),
		}
	}

	result := CheckResult{Passed: true}
	if spreadPercent.GreaterThan(maxSpread.Div(decimal.NewFromInt(2))) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Wide spread on %s: %.4f%%", quote.Instrument, spreadPercent.InexactFloat64()))
	}

	return result
}

// CheckUnits validates the computed size for a single leg
func (m *Manager) CheckUnits(instrument string, units int64) CheckResult {
	if units <= 0 {
		return CheckResult{
			Passed: false,
			Reason: fmt.Sprintf("Computed size for %s is zero; trade amount too small for current price", instrument),
		}
	}
	if units > m.cfg.MaxUnitsPerLeg {
		return CheckResult{
			Passed: false,
			Reason: fmt.Sprintf("%s size %d exceeds per-leg cap %d", instrument, units, m.cfg.MaxUnitsPerLeg),
		}
	}
	return CheckResult{Passed: true}
}

// CheckEntry runs every pre-entry check for both legs of a pair. The
// first failure wins; warnings from passing checks are merged.
func (m *Manager) CheckEntry(quote1, quote2 *models.Quote, units1, units2 int64) CheckResult {
	merged := CheckResult{Passed: true}
	checks := []CheckResult{
		m.CheckSpread(quote1),
		m.CheckSpread(quote2),
		m.CheckUnits(quote1.Instrument, units1),
		m.CheckUnits(quote2.Instrument, units2),
	}
	for _, c := range checks {
		if !c.Passed {
			return c
		}
		merged.Warnings = append(merged.Warnings, c.Warnings...)
	}
	return merged
}
