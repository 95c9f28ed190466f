package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tylertayyk/pairs-trading/internal/models"
)

func TestModelsRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}

	pair := models.NewPair("EUR_JPY", "GBP_JPY")
	mapping := map[string]*models.CointegrationModel{
		pair.Key(): {
			Pair:         pair,
			FittedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Alpha:        0.42,
			Beta:         1.31,
			SpreadMean:   0.001,
			SpreadStd:    0.0045,
			Cointegrated: true,
			Observations: 4800,
		},
	}

	if err := store.SaveModels(mapping); err != nil {
		t.Fatalf("SaveModels() failed: %v", err)
	}

	loaded, err := store.LoadModels()
	if err != nil {
		t.Fatalf("LoadModels() failed: %v", err)
	}
	got, ok := loaded[pair.Key()]
	if !ok {
		t.Fatal("Expected saved model to be present after load")
	}
	if got.Beta != 1.31 || !got.Cointegrated || got.Observations != 4800 {
		t.Errorf("Loaded model does not match saved: %+v", got)
	}
	if !got.FittedAt.Equal(mapping[pair.Key()].FittedAt) {
		t.Errorf("FittedAt mismatch: %v", got.FittedAt)
	}
}

func TestLoadModelsMissingFile(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}

	loaded, err := store.LoadModels()
	if err != nil {
		t.Fatalf("LoadModels() failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty mapping for missing file, got %d entries", len(loaded))
	}
}

func TestInTradeSetRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}

	set := map[string]bool{
		"EUR_JPY,GBP_JPY": true,
		"AUD_USD,NZD_USD": true,
		"USD_CAD,USD_CHF": false, // cleared entries are not persisted
	}
	if err := store.SaveInTradeSet(set); err != nil {
		t.Fatalf("SaveInTradeSet() failed: %v", err)
	}

	loaded, err := store.LoadInTradeSet()
	if err != nil {
		t.Fatalf("LoadInTradeSet() failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 in-trade pairs, got %d", len(loaded))
	}
	if !loaded["EUR_JPY,GBP_JPY"] || !loaded["AUD_USD,NZD_USD"] {
		t.Errorf("Loaded set missing expected pairs: %v", loaded)
	}
	if loaded["USD_CAD,USD_CHF"] {
		t.Error("Cleared pair should not survive a round trip")
	}
}

func TestLoadInTradeSetMissingFile(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() failed: %v", err)
	}

	loaded, err := store.LoadInTradeSet()
	if err != nil {
		t.Fatalf("LoadInTradeSet() failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty set for missing file, got %v", loaded)
	}
}

func TestLoadSelectedPairs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selected_pairs.yaml")
	content := `pairs:
  - leg1: EUR_JPY
    leg2: GBP_JPY
  - leg1: AUD_USD
    leg2: NZD_USD
  - leg1: EUR_JPY
    leg2: GBP_JPY
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	pairs, err := LoadSelectedPairs(path)
	if err != nil {
		t.Fatalf("LoadSelectedPairs() failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("Expected duplicate dropped, got %d pairs", len(pairs))
	}
	if pairs[0].Leg1 != "EUR_JPY" || pairs[0].Leg2 != "GBP_JPY" {
		t.Errorf("Expected first occurrence order preserved, got %v", pairs[0])
	}
}

func TestLoadSelectedPairsIdenticalLegs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selected_pairs.yaml")
	content := `pairs:
  - leg1: EUR_JPY
    leg2: EUR_JPY
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	if _, err := LoadSelectedPairs(path); err == nil {
		t.Error("Expected identical legs to be rejected")
	}
}

func TestDefaultDirExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	dir, err := DefaultDir("~/.pairs-trading")
	if err != nil {
		t.Fatalf("DefaultDir() failed: %v", err)
	}
	if dir != filepath.Join(home, ".pairs-trading") {
		t.Errorf("Expected home-expanded path, got %s", dir)
	}

	dir, err = DefaultDir("/var/lib/pairs")
	if err != nil {
		t.Fatalf("DefaultDir() failed: %v", err)
	}
	if dir != "/var/lib/pairs" {
		t.Errorf("Expected absolute path unchanged, got %s", dir)
	}
}
