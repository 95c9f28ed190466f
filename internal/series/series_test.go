package series

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tylertayyk/pairs-trading/internal/models"
)

func makeSeries(instrument string, start time.Time, closes map[int]float64, count int) *models.CandleSeries {
	s := &models.CandleSeries{Instrument: instrument}
	for i := 0; i < count; i++ {
		c, ok := closes[i]
		if !ok {
			continue
		}
		price := decimal.NewFromFloat(c)
		s.Candles = append(s.Candles, models.Candle{
			Time:  start.Add(time.Duration(i) * time.Minute),
			Open:  price,
			High:  price,
			Low:   price,
			Close: price,
		})
	}
	return s
}

func TestAlignIntersectsTimestamps(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	pair := models.NewPair("EUR_JPY", "GBP_JPY")

	// leg1 has minutes 0..4, leg2 is missing minute 2
	s1 := makeSeries("EUR_JPY", start, map[int]float64{0: 100, 1: 101, 2: 102, 3: 103, 4: 104}, 5)
	s2 := makeSeries("GBP_JPY", start, map[int]float64{0: 200, 1: 201, 3: 203, 4: 204}, 5)

	aligned, err := Align(pair, s1, s2, 2)
	if err != nil {
		t.Fatalf("Align() failed: %v", err)
	}

	if aligned.Len() != 4 {
		t.Fatalf("Expected 4 aligned points, got %d", aligned.Len())
	}

	// Values are logs of the common closes, order preserved
	wantX := []float64{math.Log(100), math.Log(101), math.Log(103), math.Log(104)}
	wantY := []float64{math.Log(200), math.Log(201), math.Log(203), math.Log(204)}
	for i := range wantX {
		if math.Abs(aligned.X[i]-wantX[i]) > 1e-12 {
			t.Errorf("X[%d]: expected %v, got %v", i, wantX[i], aligned.X[i])
		}
		if math.Abs(aligned.Y[i]-wantY[i]) > 1e-12 {
			t.Errorf("Y[%d]: expected %v, got %v", i, wantY[i], aligned.Y[i])
		}
	}

	// Last raw closes come from the final common timestamp
	if !aligned.LastClose1.Equal(decimal.NewFromFloat(104)) {
		t.Errorf("Expected LastClose1=104, got %s", aligned.LastClose1)
	}
	if !aligned.LastClose2.Equal(decimal.NewFromFloat(204)) {
		t.Errorf("Expected LastClose2=204, got %s", aligned.LastClose2)
	}
}

func TestAlignInsufficientData(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	pair := models.NewPair("EUR_JPY", "GBP_JPY")

	s1 := makeSeries("EUR_JPY", start, map[int]float64{0: 100, 1: 101}, 2)
	s2 := makeSeries("GBP_JPY", start.Add(time.Hour), map[int]float64{0: 200, 1: 201}, 2)

	// No overlap at all
	_, err := Align(pair, s1, s2, 2)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientDataError, got %v", err)
	}
	if insufficient.Aligned != 0 {
		t.Errorf("Expected 0 aligned points in error, got %d", insufficient.Aligned)
	}
}

func TestAlignBelowMinimum(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	pair := models.NewPair("EUR_JPY", "GBP_JPY")

	s1 := makeSeries("EUR_JPY", start, map[int]float64{0: 100, 1: 101, 2: 102}, 3)
	s2 := makeSeries("GBP_JPY", start, map[int]float64{0: 200, 1: 201, 2: 202}, 3)

	_, err := Align(pair, s1, s2, 10)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientDataError, got %v", err)
	}
	if insufficient.Aligned != 3 || insufficient.Minimum != 10 {
		t.Errorf("Expected aligned=3 minimum=10, got aligned=%d minimum=%d",
			insufficient.Aligned, insufficient.Minimum)
	}
}
