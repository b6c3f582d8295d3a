package analyzers

import (
	"context"
	"time"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
)

// AIAnalyzer delegates to a ModelClient and folds its verdict into the
// common analyzer contract: any client error, timeout or malformed response
// degrades to a HOLD signal instead of propagating.
type AIAnalyzer struct {
	client ModelClient
	weight float64
}

func NewAIAnalyzer(client ModelClient, weight float64) *AIAnalyzer {
	return &AIAnalyzer{client: client, weight: weight}
}

func (a *AIAnalyzer) Name() string { return "ai" }

func (a *AIAnalyzer) Analyze(ctx context.Context, snap models.MarketSnapshot) models.TradeSignal {
	resp, err := a.client.Analyze(ctx, ModelRequest{
		Symbol:       snap.Symbol,
		CurrentPrice: snap.CurrentPrice,
		Closes:       snap.Closes(),
	})
	if err != nil {
		return models.HoldSignal(snap.Symbol, "ai analysis unavailable: "+err.Error())
	}

	action := models.Action(resp.Action)
	if !action.Valid() {
		return models.HoldSignal(snap.Symbol, "ai analysis returned unknown action "+resp.Action)
	}
	conf := resp.Confidence
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}

	return models.TradeSignal{
		Symbol:      snap.Symbol,
		Action:      action,
		Confidence:  conf * a.weight,
		TargetPrice: resp.TargetPrice,
		StopLoss:    resp.StopLoss,
		Reasoning:   resp.Reasoning,
		Source:      a.Name(),
		Timestamp:   time.Now(),
	}
}

var _ domsvc.Analyzer = (*AIAnalyzer)(nil)
