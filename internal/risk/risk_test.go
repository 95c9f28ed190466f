package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tylertayyk/pairs-trading/internal/config"
	"github.com/tylertayyk/pairs-trading/internal/models"
)

func testManager() *Manager {
	return NewManager(&config.Config{
		MaxSpreadPercent: 0.2,
		MaxUnitsPerLeg:   100000,
	})
}

func quote(instrument string, bid, ask float64) *models.Quote {
	return &models.Quote{
		Instrument:       instrument,
		Bid:              decimal.NewFromFloat(bid),
		Ask:              decimal.NewFromFloat(ask),
		ConversionFactor: decimal.NewFromInt(1),
		Time:             time.Now(),
	}
}

func TestCheckSpread(t *testing.T) {
	m := testManager()

	tests := []struct {
		name   string
		quote  *models.Quote
		passed bool
	}{
		{"tight spread", quote("EUR_JPY", 163.500, 163.510), true},
		{"wide spread", quote("EUR_JPY", 163.0, 164.0), false},
		{"missing bid", quote("EUR_JPY", 0, 163.5), false},
		{"crossed quote", quote("EUR_JPY", 163.6, 163.5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := m.CheckSpread(tt.quote)
			if result.Passed != tt.passed {
				t.Errorf("Expected passed=%v, got %v (%s)", tt.passed, result.Passed, result.Reason)
			}
		})
	}
}

func TestCheckSpreadWarnsNearLimit(t *testing.T) {
	m := testManager()

	// 0.15% spread: passes but above half the 0.2% cap
	result := m.CheckSpread(quote("GBP_JPY", 199.85, 200.15))
	if !result.Passed {
		t.Fatalf("Expected pass, got: %s", result.Reason)
	}
	if len(result.Warnings) == 0 {
		t.Error("Expected a wide-spread warning")
	}
}

func TestCheckUnits(t *testing.T) {
	m := testManager()

	if result := m.CheckUnits("EUR_JPY", 0); result.Passed {
		t.Error("Expected zero units to fail")
	}
	if result := m.CheckUnits("EUR_JPY", 100001); result.Passed {
		t.Error("Expected units above the cap to fail")
	}
	if result := m.CheckUnits("EUR_JPY", 500); !result.Passed {
		t.Errorf("Expected valid units to pass, got: %s", result.Reason)
	}
}

func TestCheckEntryFirstFailureWins(t *testing.T) {
	m := testManager()

	result := m.CheckEntry(
		quote("EUR_JPY", 163.500, 163.510),
		quote("GBP_JPY", 0, 200.0),
		100, 100,
	)
	if result.Passed {
		t.Fatal("Expected entry check to fail on the bad quote")
	}
}

func TestCheckEntryAllPass(t *testing.T) {
	m := testManager()

	result := m.CheckEntry(
		quote("EUR_JPY", 163.500, 163.510),
		quote("GBP_JPY", 200.000, 200.012),
		100, 80,
	)
	if !result.Passed {
		t.Fatalf("Expected entry check to pass, got: %s", result.Reason)
	}
}
