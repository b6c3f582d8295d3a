package strategies

import (
	"context"
	"fmt"
	"strings"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
	"TradePilot/internal/services/indicators"
)

// MomentumStrategy tallies bullish vs bearish indicator votes and follows
// the majority. It is deliberately simple: three binary reads, no weighting.
type MomentumStrategy struct{}

func NewMomentumStrategy() *MomentumStrategy { return &MomentumStrategy{} }

func (s *MomentumStrategy) Name() string { return "momentum" }

func (s *MomentumStrategy) Analyze(ctx context.Context, snap models.MarketSnapshot) (models.StrategyResult, error) {
	if err := ctx.Err(); err != nil {
		return models.StrategyResult{}, err
	}

	ind := indicators.Compute(snap.Series)
	if !ind.Valid {
		return models.StrategyResult{
			Symbol:         snap.Symbol,
			Action:         models.ActionHold,
			Confidence:     0.5,
			TargetPrice:    snap.CurrentPrice,
			StopLoss:       snap.CurrentPrice * 0.98,
			Reasoning:      "insufficient history for momentum read",
			StrategyName:   s.Name(),
			Recommendation: models.RecHold,
		}, nil
	}

	var bullish, bearish int
	var reasons []string

	if ind.RSI < 30 {
		bullish++
		reasons = append(reasons, fmt.Sprintf("RSI %.1f oversold", ind.RSI))
	} else if ind.RSI > 70 {
		bearish++
		reasons = append(reasons, fmt.Sprintf("RSI %.1f overbought", ind.RSI))
	}

	if ind.CurrentPrice > ind.SMAShort {
		bullish++
		reasons = append(reasons, "price above 20-bar SMA")
	} else {
		bearish++
		reasons = append(reasons, "price below 20-bar SMA")
	}

	if ind.MACD > ind.MACDSignal {
		bullish++
		reasons = append(reasons, "MACD momentum positive")
	} else {
		bearish++
		reasons = append(reasons, "MACD momentum negative")
	}

	total := bullish + bearish
	price := ind.CurrentPrice

	res := models.StrategyResult{
		Symbol:       snap.Symbol,
		StrategyName: s.Name(),
		Reasoning:    strings.Join(reasons, "; "),
	}
	switch {
	case bullish > bearish:
		res.Action = models.ActionBuy
		res.Recommendation = models.RecBuy
		res.Confidence = float64(bullish-bearish) / float64(total)
		res.TargetPrice = price * 1.1
		res.StopLoss = price * 0.95
	case bearish > bullish:
		res.Action = models.ActionSell
		res.Recommendation = models.RecSell
		res.Confidence = float64(bearish-bullish) / float64(total)
		res.TargetPrice = price * 0.9
		res.StopLoss = price * 1.05
	default:
		res.Action = models.ActionHold
		res.Recommendation = models.RecHold
		res.Confidence = 0.5
		res.TargetPrice = price
		res.StopLoss = price * 0.98
	}
	return res, nil
}

var _ domsvc.Strategy = (*MomentumStrategy)(nil)
