package models

import "time"

// Tick is a single trade print from the live market stream.
type Tick struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}

// Candle represents an OHLCV bar used for analysis and feature engineering.
type Candle struct {
	Bucket time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// MarketSnapshot is the per-symbol bundle every analyzer receives.
// It is built once per analysis pass and must not be mutated afterwards.
type MarketSnapshot struct {
	Symbol       string
	CurrentPrice float64
	Series       []Candle // chronological, oldest first
	Volume       float64  // most recent bar volume
	Timestamp    time.Time
}

// Closes returns the close prices of the snapshot series in order.
func (s MarketSnapshot) Closes() []float64 {
	out := make([]float64, len(s.Series))
	for i, c := range s.Series {
		out[i] = c.Close
	}
	return out
}

// Position is a single holding inside a portfolio.
type Position struct {
	Symbol string
	Value  float64
	Sector string
}

// PortfolioState is the read-only portfolio view the risk gate evaluates
// against. One instance is shared by all checks of a single validation and
// no check may mutate it.
type PortfolioState struct {
	Positions      []Position
	PortfolioValue float64
	DailyPnL       float64
}

// GrossExposure returns the summed absolute value of all positions.
func (p PortfolioState) GrossExposure() float64 {
	total := 0.0
	for _, pos := range p.Positions {
		total += pos.Value
	}
	return total
}

// MarketCondition is an aggregate market-wide state used by the
// market-condition risk check.
type MarketCondition struct {
	Volatility float64 // 0..1, >0.5 is considered extreme
	Sentiment  float64 // 0..1, <0.2 is considered panicked
}
