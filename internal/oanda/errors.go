package oanda

import "fmt"

// MarketDataError is a transient failure fetching candles or pricing.
// Callers skip the pair for the cycle and retry on the next tick.
type MarketDataError struct {
	Instrument string
	Err        error
}

func (e *MarketDataError) Error() string {
	return fmt.Sprintf("market data for %s: %v", e.Instrument, e.Err)
}

func (e *MarketDataError) Unwrap() error { return e.Err }

// BrokerError is a failure submitting or closing an order, or reading
// open trades
type BrokerError struct {
	Op         string
	Instrument string
	Err        error
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("broker %s for %s: %v", e.Op, e.Instrument, e.Err)
}

func (e *BrokerError) Unwrap() error { return e.Err }
