package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pair is an ordered pair of instrument identifiers. Order matters: Leg1 is
// the regression input (x) and Leg2 the output (y), so (A,B) and (B,A) are
// different pairs with different models and different positions.
type Pair struct {
	Leg1 string `json:"leg1"`
	Leg2 string `json:"leg2"`
}

// NewPair creates a pair from two instrument identifiers
func NewPair(leg1, leg2 string) Pair {
	return Pair{Leg1: leg1, Leg2: leg2}
}

// ParsePair parses a "LEG1,LEG2" key back into a pair
func ParsePair(key string) (Pair, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("invalid pair key %q", key)
	}
	return Pair{Leg1: parts[0], Leg2: parts[1]}, nil
}

// Key returns the canonical ordered key used for persisted mappings
func (p Pair) Key() string {
	return p.Leg1 + "," + p.Leg2
}

func (p Pair) String() string {
	return p.Leg1 + "/" + p.Leg2
}

// Contains reports whether instrument is one of the pair's legs
func (p Pair) Contains(instrument string) bool {
	return p.Leg1 == instrument || p.Leg2 == instrument
}

// SharesInstrument reports whether the two pairs have a leg in common
func (p Pair) SharesInstrument(other Pair) bool {
	return p.Contains(other.Leg1) || p.Contains(other.Leg2)
}

// Candle is one OHLC bar for an instrument
type Candle struct {
	Time  time.Time       `json:"time"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

// CandleSeries is an ordered candle sequence with strictly increasing timestamps
type CandleSeries struct {
	Instrument string   `json:"instrument"`
	Candles    []Candle `json:"candles"`
}

// Quote is the latest closeout pricing for an instrument, including the
// factor converting one unit of quote currency into the account's currency
type Quote struct {
	Instrument       string          `json:"instrument"`
	Bid              decimal.Decimal `json:"bid"`
	Ask              decimal.Decimal `json:"ask"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	Time             time.Time       `json:"time"`
}

// Mid returns the bid/ask midpoint
func (q *Quote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2))
}

// OpenTrade is one broker-reported open trade; Units is signed
// (positive = long, negative = short)
type OpenTrade struct {
	ID         string          `json:"id"`
	Instrument string          `json:"instrument"`
	Units      decimal.Decimal `json:"units"`
	Price      decimal.Decimal `json:"price"`
	OpenTime   time.Time       `json:"open_time"`
}

// CointegrationModel holds the fitted linear relationship between the
// log-prices of a pair. Immutable once created; the store replaces entries
// wholesale on refresh.
type CointegrationModel struct {
	Pair         Pair      `json:"pair"`
	FittedAt     time.Time `json:"fitted_at"`
	Alpha        float64   `json:"alpha"`
	Beta         float64   `json:"beta"`
	SpreadMean   float64   `json:"spread_mean"`
	SpreadStd    float64   `json:"spread_std"`
	Cointegrated bool      `json:"cointegrated"`
	Observations int       `json:"observations"`
}

// Signal classifies the current spread deviation
type Signal string

const (
	SignalHold       Signal = "hold"
	SignalEnterLong  Signal = "enter_long"  // long the spread: short leg1, long leg2
	SignalEnterShort Signal = "enter_short" // short the spread: long leg1, short leg2
	SignalExitLong   Signal = "exit_long"
	SignalExitShort  Signal = "exit_short"
)

// PositionState is the canonical per-pair position derived from broker
// open trades each cycle; it is never stored
type PositionState string

const (
	PositionFlat         PositionState = "flat"
	PositionLongSpread   PositionState = "long_spread"  // leg1 short, leg2 long
	PositionShortSpread  PositionState = "short_spread" // leg1 long, leg2 short
	PositionInconsistent PositionState = "inconsistent"
)

// PositionSide selects which side of an instrument position to close
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)
