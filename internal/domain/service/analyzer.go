package service

import (
	"context"

	"TradePilot/internal/domain/models"
)

// Analyzer is the capability contract every analysis dimension implements
// (technical, fundamental, sentiment, ai). Analyze never returns an error:
// insufficient data and internal failures degrade to a HOLD signal with zero
// confidence and the cause in Reasoning, so the fuser can treat all
// analyzers uniformly. Implementations must respect ctx cancellation and
// fall back to the degenerate result on timeout.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, snap models.MarketSnapshot) models.TradeSignal
}

// Strategy is a whole-strategy implementation feeding the consensus path.
// Unlike Analyzer, a Strategy may fail; the aggregator silently excludes
// errored results rather than counting them as HOLD votes.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, snap models.MarketSnapshot) (models.StrategyResult, error)
}
