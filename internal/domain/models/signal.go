package models

import "time"

// Action is the directional decision of a signal.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Valid reports whether a is one of the three known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	default:
		return false
	}
}

// TradeSignal is the primary value object of the pipeline. Analyzers create
// them, the fuser combines them into a new one, and the risk gate may shrink
// Quantity/Confidence but never enlarges them. Stages pass signals by value;
// nothing mutates a signal it did not create.
type TradeSignal struct {
	Symbol      string    `json:"symbol"`
	Action      Action    `json:"action"`
	Confidence  float64   `json:"confidence"` // 0..1
	TargetPrice float64   `json:"target_price"`
	StopLoss    float64   `json:"stop_loss"`
	Quantity    int       `json:"quantity"` // 0 means unsized
	Reasoning   string    `json:"reasoning"`
	Source      string    `json:"source"` // producing analyzer, empty for fused signals
	Timestamp   time.Time `json:"timestamp"`
}

// HoldSignal builds the degenerate HOLD/zero-confidence signal used whenever
// an analyzer cannot produce an opinion. The cause goes into Reasoning; per
// the pipeline contract it is never surfaced as an error.
func HoldSignal(symbol, reason string) TradeSignal {
	return TradeSignal{
		Symbol:    symbol,
		Action:    ActionHold,
		Reasoning: reason,
		Timestamp: time.Now(),
	}
}

// IndicatorSet is the derived, ephemeral bundle of technical indicators for
// one snapshot. Valid=false means fewer than MinIndicatorBars bars were
// available; callers must treat that as "insufficient data", not a failure.
type IndicatorSet struct {
	SMAShort     float64
	SMALong      float64
	RSI          float64 // 0..100
	MACD         float64
	MACDSignal   float64
	CurrentPrice float64
	Valid        bool
}

// MinIndicatorBars is the minimum series length required to compute a full
// IndicatorSet.
const MinIndicatorBars = 20
