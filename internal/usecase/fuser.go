package usecase

import (
	"fmt"
	"math"
	"strings"
	"time"

	"TradePilot/internal/domain/models"
)

const (
	// share of total weighted confidence one side must carry to win the vote
	decisionThreshold = 0.6
	// stop distance beyond which a fused signal is considered loosely risked
	wideStopRatio = 0.15
	// confidence penalty applied to loosely risked signals
	wideStopPenalty = 0.7
)

// SignalFuser folds the per-analyzer signals into one decision by weighted
// voting. Analyzer confidences arrive pre-scaled by their weights, so the
// fuser only sums per side and compares shares against the threshold.
type SignalFuser struct {
	threshold float64
}

type FuserOption func(*SignalFuser)

func WithDecisionThreshold(t float64) FuserOption {
	return func(f *SignalFuser) { f.threshold = t }
}

func NewSignalFuser(opts ...FuserOption) *SignalFuser {
	f := &SignalFuser{threshold: decisionThreshold}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fuse combines signals into a single TradeSignal for symbol. BUY is checked
// before SELL, so an exact tie at the threshold resolves bullish. Degenerate
// input (no signals, or zero total confidence) yields HOLD with zero
// confidence; only a genuinely contested vote holds at 0.5.
func (f *SignalFuser) Fuse(symbol string, price float64, signals []models.TradeSignal) models.TradeSignal {
	if len(signals) == 0 {
		return fusedHold(symbol, price, 0, "no signals")
	}

	var buyScore, sellScore, total float64
	reasons := make([]string, 0, len(signals))
	for _, s := range signals {
		switch s.Action {
		case models.ActionBuy:
			buyScore += s.Confidence
		case models.ActionSell:
			sellScore += s.Confidence
		}
		total += s.Confidence
		if s.Reasoning != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", s.Source, s.Reasoning))
		}
	}
	reasoning := strings.Join(reasons, " | ")

	if total == 0 {
		return fusedHold(symbol, price, 0, reasoning)
	}

	var action models.Action
	var confidence float64
	switch {
	case buyScore/total >= f.threshold:
		action = models.ActionBuy
		confidence = buyScore / total
	case sellScore/total >= f.threshold:
		action = models.ActionSell
		confidence = sellScore / total
	default:
		return fusedHold(symbol, price, 0.5, reasoning)
	}

	target := meanNonZero(signals, func(s models.TradeSignal) float64 { return s.TargetPrice })
	stop := meanNonZero(signals, func(s models.TradeSignal) float64 { return s.StopLoss })

	fused := models.TradeSignal{
		Symbol:      symbol,
		Action:      action,
		Confidence:  confidence,
		TargetPrice: target,
		StopLoss:    stop,
		Reasoning:   reasoning,
		Timestamp:   time.Now(),
	}
	return f.applyStopFilter(fused, price)
}

// applyStopFilter penalizes fused signals whose stop sits too far from the
// current price. It shrinks confidence, never the other way.
func (f *SignalFuser) applyStopFilter(sig models.TradeSignal, price float64) models.TradeSignal {
	if sig.Action == models.ActionHold || price <= 0 || sig.StopLoss <= 0 {
		return sig
	}
	if math.Abs(sig.StopLoss-price)/price > wideStopRatio {
		sig.Confidence *= wideStopPenalty
		sig.Reasoning += " | stop distance exceeds 15%, confidence reduced"
	}
	return sig
}

func fusedHold(symbol string, price, confidence float64, reasoning string) models.TradeSignal {
	return models.TradeSignal{
		Symbol:      symbol,
		Action:      models.ActionHold,
		Confidence:  confidence,
		TargetPrice: price,
		StopLoss:    price * 0.98,
		Reasoning:   reasoning,
		Timestamp:   time.Now(),
	}
}

// meanNonZero averages the non-zero picks across every contributing signal,
// regardless of which side each one voted for.
func meanNonZero(signals []models.TradeSignal, pick func(models.TradeSignal) float64) float64 {
	var sum float64
	var n int
	for _, s := range signals {
		if v := pick(s); v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
