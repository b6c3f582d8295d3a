package strategies

import (
	"context"
	"fmt"
	"math"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
	"TradePilot/internal/services/indicators"
)

const (
	// deviation from the 20-bar SMA that counts as stretched
	stretchThreshold = 0.05
	rsiOversold      = 35.0
	rsiOverbought    = 65.0
)

// MeanReversionStrategy fades moves that stretch too far from the 20-bar
// SMA, but only when RSI confirms the exhaustion.
type MeanReversionStrategy struct{}

func NewMeanReversionStrategy() *MeanReversionStrategy { return &MeanReversionStrategy{} }

func (s *MeanReversionStrategy) Name() string { return "mean_reversion" }

func (s *MeanReversionStrategy) Analyze(ctx context.Context, snap models.MarketSnapshot) (models.StrategyResult, error) {
	if err := ctx.Err(); err != nil {
		return models.StrategyResult{}, err
	}

	ind := indicators.Compute(snap.Series)
	if !ind.Valid || ind.SMAShort == 0 {
		return models.StrategyResult{
			Symbol:         snap.Symbol,
			Action:         models.ActionHold,
			Confidence:     0.5,
			TargetPrice:    snap.CurrentPrice,
			StopLoss:       snap.CurrentPrice * 0.98,
			Reasoning:      "insufficient history for mean-reversion read",
			StrategyName:   s.Name(),
			Recommendation: models.RecHold,
		}, nil
	}

	price := ind.CurrentPrice
	dev := (price - ind.SMAShort) / ind.SMAShort

	res := models.StrategyResult{
		Symbol:       snap.Symbol,
		StrategyName: s.Name(),
	}
	switch {
	case dev < -stretchThreshold && ind.RSI < rsiOversold:
		res.Action = models.ActionBuy
		res.Recommendation = models.RecBuy
		res.Confidence = math.Min(0.8, math.Abs(dev)*10)
		res.TargetPrice = ind.SMAShort
		res.StopLoss = price * 0.92
		res.Reasoning = fmt.Sprintf("price %.1f%% below mean with RSI %.1f, expecting reversion", -dev*100, ind.RSI)
	case dev > stretchThreshold && ind.RSI > rsiOverbought:
		res.Action = models.ActionSell
		res.Recommendation = models.RecSell
		res.Confidence = math.Min(0.8, math.Abs(dev)*10)
		res.TargetPrice = ind.SMAShort
		res.StopLoss = price * 1.08
		res.Reasoning = fmt.Sprintf("price %.1f%% above mean with RSI %.1f, expecting reversion", dev*100, ind.RSI)
	default:
		res.Action = models.ActionHold
		res.Recommendation = models.RecHold
		res.Confidence = 0.3
		res.TargetPrice = price
		res.StopLoss = price * 0.98
		res.Reasoning = fmt.Sprintf("price within %.0f%% of mean, no edge", stretchThreshold*100)
	}
	return res, nil
}

var _ domsvc.Strategy = (*MeanReversionStrategy)(nil)
