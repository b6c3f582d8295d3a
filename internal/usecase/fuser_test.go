package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
)

func TestFuseMajorityBuyWins(t *testing.T) {
	f := NewSignalFuser()
	signals := []models.TradeSignal{
		{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.25, TargetPrice: 108, StopLoss: 94, Source: "technical", Reasoning: "bullish cross"},
		{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.30, TargetPrice: 112, StopLoss: 92, Source: "fundamental", Reasoning: "undervalued"},
		{Symbol: "AAPL", Action: models.ActionHold, Confidence: 0, Source: "sentiment", Reasoning: "neutral"},
		{Symbol: "AAPL", Action: models.ActionSell, Confidence: 0.15, TargetPrice: 90, StopLoss: 106, Source: "ai", Reasoning: "model bearish"},
	}

	fused := f.Fuse("AAPL", 100, signals)

	require.Equal(t, models.ActionBuy, fused.Action)
	assert.InDelta(t, 0.55/0.70, fused.Confidence, 1e-3)
	// target/stop averaged over every contributor that set one
	assert.InDelta(t, (108+112+90.0)/3, fused.TargetPrice, 1e-9)
	assert.InDelta(t, (94+92+106.0)/3, fused.StopLoss, 1e-9)
	assert.Contains(t, fused.Reasoning, "technical: bullish cross")
	assert.Contains(t, fused.Reasoning, " | ")
}

func TestFuseNoMajorityHolds(t *testing.T) {
	f := NewSignalFuser()
	signals := []models.TradeSignal{
		{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.3, Source: "technical"},
		{Symbol: "AAPL", Action: models.ActionSell, Confidence: 0.3, Source: "ai"},
	}

	fused := f.Fuse("AAPL", 100, signals)

	assert.Equal(t, models.ActionHold, fused.Action)
	assert.Equal(t, 0.5, fused.Confidence)
}

func TestFuseBuyCheckedBeforeSell(t *testing.T) {
	f := NewSignalFuser(WithDecisionThreshold(0.5))
	signals := []models.TradeSignal{
		{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.3, TargetPrice: 108, StopLoss: 95, Source: "technical"},
		{Symbol: "AAPL", Action: models.ActionSell, Confidence: 0.3, TargetPrice: 92, StopLoss: 105, Source: "ai"},
	}

	fused := f.Fuse("AAPL", 100, signals)

	// dead tie at the threshold resolves bullish
	assert.Equal(t, models.ActionBuy, fused.Action)
}

func TestFuseAllDegenerateHolds(t *testing.T) {
	f := NewSignalFuser()
	signals := []models.TradeSignal{
		models.HoldSignal("AAPL", "insufficient data"),
		models.HoldSignal("AAPL", "analysis unavailable"),
	}

	fused := f.Fuse("AAPL", 100, signals)

	// no analyzer expressed any conviction, so neither does the fuse
	assert.Equal(t, models.ActionHold, fused.Action)
	assert.Zero(t, fused.Confidence)
}

func TestFuseEmptyInputHolds(t *testing.T) {
	f := NewSignalFuser()

	fused := f.Fuse("AAPL", 100, nil)

	assert.Equal(t, models.ActionHold, fused.Action)
	assert.Zero(t, fused.Confidence)
	assert.Equal(t, "no signals", fused.Reasoning)
}

func TestFuseTargetsAverageAcrossSides(t *testing.T) {
	f := NewSignalFuser()
	signals := []models.TradeSignal{
		{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.4, TargetPrice: 110, StopLoss: 95, Source: "technical"},
		{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.4, TargetPrice: 110, StopLoss: 95, Source: "fundamental"},
		{Symbol: "AAPL", Action: models.ActionSell, Confidence: 0.1, TargetPrice: 80, StopLoss: 104, Source: "ai"},
	}

	fused := f.Fuse("AAPL", 100, signals)

	require.Equal(t, models.ActionBuy, fused.Action)
	// the losing side's target still contributes: (110+110+80)/3
	assert.InDelta(t, 100, fused.TargetPrice, 1e-9)
	assert.InDelta(t, (95+95+104.0)/3, fused.StopLoss, 1e-9)
}

func TestFuseWideStopPenalized(t *testing.T) {
	f := NewSignalFuser()
	signals := []models.TradeSignal{
		{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.5, TargetPrice: 130, StopLoss: 80, Source: "technical"},
		{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.3, TargetPrice: 130, StopLoss: 80, Source: "fundamental"},
	}

	fused := f.Fuse("AAPL", 100, signals)

	require.Equal(t, models.ActionBuy, fused.Action)
	// unanimous buy (confidence 1.0) shrunk by the 0.7 stop penalty
	assert.InDelta(t, 0.7, fused.Confidence, 1e-9)
	assert.Contains(t, fused.Reasoning, "stop distance")
}

func TestFuseTightStopNotPenalized(t *testing.T) {
	f := NewSignalFuser()
	signals := []models.TradeSignal{
		{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.5, TargetPrice: 108, StopLoss: 94, Source: "technical"},
	}

	fused := f.Fuse("AAPL", 100, signals)

	assert.InDelta(t, 1.0, fused.Confidence, 1e-9)
	assert.NotContains(t, fused.Reasoning, "stop distance")
}
