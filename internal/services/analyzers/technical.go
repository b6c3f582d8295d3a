package analyzers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
	"TradePilot/internal/services/indicators"
)

// Decision thresholds shared by the score-based analyzers.
const (
	buyScoreThreshold  = 0.6
	sellScoreThreshold = 0.4
)

// TechnicalAnalyzer scores a symbol from its indicator set: SMA cross, RSI
// extremes and MACD cross each nudge a neutral 0.5 score up or down.
type TechnicalAnalyzer struct {
	weight float64
}

func NewTechnicalAnalyzer(weight float64) *TechnicalAnalyzer {
	return &TechnicalAnalyzer{weight: weight}
}

func (a *TechnicalAnalyzer) Name() string { return "technical" }

func (a *TechnicalAnalyzer) Analyze(ctx context.Context, snap models.MarketSnapshot) (sig models.TradeSignal) {
	defer func() {
		if r := recover(); r != nil {
			sig = models.HoldSignal(snap.Symbol, fmt.Sprintf("technical analysis error: %v", r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return models.HoldSignal(snap.Symbol, "technical analysis cancelled: "+err.Error())
	}

	ind := indicators.Compute(snap.Series)
	if !ind.Valid {
		return models.HoldSignal(snap.Symbol, "insufficient bars for technical analysis")
	}

	score := 0.5
	var reasons []string

	if ind.SMAShort > ind.SMALong {
		score += 0.1
		reasons = append(reasons, "short SMA above long SMA")
	} else {
		score -= 0.1
		reasons = append(reasons, "short SMA below long SMA")
	}

	if ind.RSI < 30 {
		score += 0.15
		reasons = append(reasons, "RSI oversold")
	} else if ind.RSI > 70 {
		score -= 0.15
		reasons = append(reasons, "RSI overbought")
	}

	if ind.MACD > ind.MACDSignal {
		score += 0.1
		reasons = append(reasons, "MACD above signal line")
	} else {
		score -= 0.1
		reasons = append(reasons, "MACD below signal line")
	}

	price := ind.CurrentPrice
	var action models.Action
	var target, stop float64
	switch {
	case score >= buyScoreThreshold:
		action = models.ActionBuy
		target = price * 1.08
		stop = price * 0.94
	case score <= sellScoreThreshold:
		action = models.ActionSell
		target = price * 0.92
		stop = price * 1.06
	default:
		action = models.ActionHold
		target = price
		stop = price * 0.98
	}

	return models.TradeSignal{
		Symbol:      snap.Symbol,
		Action:      action,
		Confidence:  scoreConfidence(score) * a.weight,
		TargetPrice: target,
		StopLoss:    stop,
		Reasoning:   strings.Join(reasons, "; "),
		Source:      a.Name(),
		Timestamp:   time.Now(),
	}
}

// scoreConfidence maps a 0..1 score onto confidence by distance from the
// neutral midpoint.
func scoreConfidence(score float64) float64 {
	c := score - 0.5
	if c < 0 {
		c = -c
	}
	return c * 2
}

var _ domsvc.Analyzer = (*TechnicalAnalyzer)(nil)
