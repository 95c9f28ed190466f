package signal

import (
	"errors"
	"math"
	"testing"

	"github.com/tylertayyk/pairs-trading/internal/models"
)

var thresholds = Thresholds{Entry: 1.96, Exit: 1.5}

// unitModel maps logPrice2 straight to the z-score: alpha=0, beta=1,
// mean=0, std=1, so z = logPrice2 - logPrice1.
func unitModel(cointegrated bool) *models.CointegrationModel {
	return &models.CointegrationModel{
		Pair:         models.NewPair("EUR_JPY", "GBP_JPY"),
		Alpha:        0,
		Beta:         1,
		SpreadMean:   0,
		SpreadStd:    1,
		Cointegrated: cointegrated,
		Observations: 1000,
	}
}

func TestEvaluateFlat(t *testing.T) {
	model := unitModel(true)

	tests := []struct {
		name     string
		z        float64
		expected models.Signal
	}{
		{"inside band", 0.5, models.SignalHold},
		{"just below entry", 1.9, models.SignalHold},
		{"at entry high", 1.96, models.SignalEnterShort},
		{"above entry", 2.5, models.SignalEnterShort},
		{"at entry low", -1.96, models.SignalEnterLong},
		{"below entry", -3.0, models.SignalEnterLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := Evaluate(model, 0, tt.z, models.PositionFlat, thresholds)
			if err != nil {
				t.Fatalf("Evaluate() failed: %v", err)
			}
			if eval.Signal != tt.expected {
				t.Errorf("z=%v: expected %s, got %s", tt.z, tt.expected, eval.Signal)
			}
			if math.Abs(eval.ZScore-tt.z) > 1e-12 {
				t.Errorf("Expected z-score %v, got %v", tt.z, eval.ZScore)
			}
		})
	}
}

func TestEvaluateNonCointegratedNeverEnters(t *testing.T) {
	model := unitModel(false)

	for _, z := range []float64{3.0, -3.0} {
		eval, err := Evaluate(model, 0, z, models.PositionFlat, thresholds)
		if err != nil {
			t.Fatalf("Evaluate() failed: %v", err)
		}
		if eval.Signal != models.SignalHold {
			t.Errorf("z=%v: non-cointegrated model must hold, got %s", z, eval.Signal)
		}
	}
}

func TestEvaluateNonCointegratedStillExits(t *testing.T) {
	model := unitModel(false)

	eval, err := Evaluate(model, 0, 0.5, models.PositionShortSpread, thresholds)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if eval.Signal != models.SignalExitShort {
		t.Errorf("Expected exit despite broken cointegration, got %s", eval.Signal)
	}
}

func TestEvaluateHysteresis(t *testing.T) {
	// A short entry at z=2.0 must survive z=1.7 and close only once the
	// spread falls inside the exit band.
	model := unitModel(true)
	steps := []struct {
		z        float64
		position models.PositionState
		expected models.Signal
	}{
		{0, models.PositionFlat, models.SignalHold},
		{2.0, models.PositionFlat, models.SignalEnterShort},
		{1.7, models.PositionShortSpread, models.SignalHold},
		{1.3, models.PositionShortSpread, models.SignalExitShort},
	}

	for i, step := range steps {
		eval, err := Evaluate(model, 0, step.z, step.position, thresholds)
		if err != nil {
			t.Fatalf("Step %d: Evaluate() failed: %v", i, err)
		}
		if eval.Signal != step.expected {
			t.Errorf("Step %d (z=%v): expected %s, got %s", i, step.z, step.expected, eval.Signal)
		}
	}
}

func TestEvaluateLongSpreadExit(t *testing.T) {
	model := unitModel(true)

	tests := []struct {
		z        float64
		expected models.Signal
	}{
		{-2.0, models.SignalHold},
		{-1.5, models.SignalHold},
		{-1.4, models.SignalExitLong},
		{0.2, models.SignalExitLong},
	}

	for _, tt := range tests {
		eval, err := Evaluate(model, 0, tt.z, models.PositionLongSpread, thresholds)
		if err != nil {
			t.Fatalf("Evaluate() failed: %v", err)
		}
		if eval.Signal != tt.expected {
			t.Errorf("z=%v: expected %s, got %s", tt.z, tt.expected, eval.Signal)
		}
	}
}

func TestEvaluateInconsistentPositionHolds(t *testing.T) {
	model := unitModel(true)

	eval, err := Evaluate(model, 0, 5.0, models.PositionInconsistent, thresholds)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if eval.Signal != models.SignalHold {
		t.Errorf("Expected hold for inconsistent position, got %s", eval.Signal)
	}
}

func TestEvaluateDegenerateStd(t *testing.T) {
	model := unitModel(true)
	model.SpreadStd = 0

	eval, err := Evaluate(model, 0, 2.0, models.PositionFlat, thresholds)
	var degErr *DegenerateModelError
	if !errors.As(err, &degErr) {
		t.Fatalf("Expected DegenerateModelError, got %v", err)
	}
	if eval.Signal != models.SignalHold {
		t.Errorf("Expected hold on degenerate model, got %s", eval.Signal)
	}
}

func TestEvaluateUsesFittedCoefficients(t *testing.T) {
	model := &models.CointegrationModel{
		Pair:         models.NewPair("EUR_JPY", "GBP_JPY"),
		Alpha:        0.5,
		Beta:         2.0,
		SpreadMean:   0.01,
		SpreadStd:    0.02,
		Cointegrated: true,
	}

	// spread = 5.61 - 0.5 - 2*2.5 = 0.11; z = (0.11-0.01)/0.02 = 5
	eval, err := Evaluate(model, 2.5, 5.61, models.PositionFlat, thresholds)
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if math.Abs(eval.ZScore-5.0) > 1e-9 {
		t.Errorf("Expected z-score 5.0, got %v", eval.ZScore)
	}
	if eval.Signal != models.SignalEnterShort {
		t.Errorf("Expected enter short, got %s", eval.Signal)
	}
}
