package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
)

type stubStrategy struct {
	name string
	res  models.StrategyResult
	err  error
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Analyze(context.Context, models.MarketSnapshot) (models.StrategyResult, error) {
	return s.res, s.err
}

func stratResult(name string, action models.Action, rec models.Recommendation, conf, target float64) *stubStrategy {
	return &stubStrategy{name: name, res: models.StrategyResult{
		Symbol:         "AAPL",
		Action:         action,
		Confidence:     conf,
		TargetPrice:    target,
		StrategyName:   name,
		Recommendation: rec,
	}}
}

func TestEvaluateMajorityBuyConsensus(t *testing.T) {
	strategies := []domsvc.Strategy{
		stratResult("momentum", models.ActionBuy, models.RecBuy, 0.7, 110),
		stratResult("mean_reversion", models.ActionBuy, models.RecStrongBuy, 0.8, 112),
		stratResult("breakout", models.ActionHold, models.RecHold, 0.3, 100),
	}
	agg := NewConsensusAggregator(strategies, nil)

	report := agg.Evaluate(context.Background(), models.MarketSnapshot{Symbol: "AAPL"})

	require.Equal(t, 3, report.ModelCount)
	// STRONG_BUY + BUY = 2 of 3 ≥ 0.6
	assert.Equal(t, models.ActionBuy, report.ConsensusAction)
	assert.InDelta(t, (0.7+0.8+0.3)/3, report.AverageConfidence, 1e-9)
	assert.InDelta(t, (110+112+100.0)/3, report.AverageTargetPrice, 1e-9)
}

func TestEvaluateDistributionSumsToModelCount(t *testing.T) {
	strategies := []domsvc.Strategy{
		stratResult("a", models.ActionBuy, models.RecBuy, 0.7, 110),
		stratResult("b", models.ActionSell, models.RecSell, 0.6, 90),
		stratResult("c", models.ActionHold, models.RecHold, 0.3, 100),
		stratResult("d", models.ActionSell, models.RecReduce, 0.5, 95),
	}
	agg := NewConsensusAggregator(strategies, nil)

	report := agg.Evaluate(context.Background(), models.MarketSnapshot{Symbol: "AAPL"})

	sum := 0
	for _, n := range report.RecommendationDistribution {
		sum += n
	}
	assert.Equal(t, report.ModelCount, sum)
}

func TestEvaluateErroredStrategiesExcluded(t *testing.T) {
	strategies := []domsvc.Strategy{
		stratResult("momentum", models.ActionBuy, models.RecBuy, 0.7, 110),
		&stubStrategy{name: "broken", err: errors.New("feed offline")},
	}
	agg := NewConsensusAggregator(strategies, nil)

	report := agg.Evaluate(context.Background(), models.MarketSnapshot{Symbol: "AAPL"})

	// the failure shows up in the per-strategy breakdown but not the tallies
	require.Equal(t, 1, report.ModelCount)
	assert.Equal(t, "feed offline", report.IndividualResults["broken"].Err)
	assert.Equal(t, models.ActionBuy, report.ConsensusAction)
	assert.InDelta(t, 0.7, report.AverageConfidence, 1e-9)
}

func TestEvaluateNoValidResultsHolds(t *testing.T) {
	strategies := []domsvc.Strategy{
		&stubStrategy{name: "a", err: errors.New("down")},
		&stubStrategy{name: "b", err: errors.New("down")},
	}
	agg := NewConsensusAggregator(strategies, nil)

	report := agg.Evaluate(context.Background(), models.MarketSnapshot{Symbol: "AAPL"})

	assert.Zero(t, report.ModelCount)
	assert.Equal(t, models.RecHold, report.ConsensusRecommendation)
	assert.Equal(t, models.ActionHold, report.ConsensusAction)
}

func TestEvaluateFreeTextRecommendationParsed(t *testing.T) {
	free := &stubStrategy{name: "llm", res: models.StrategyResult{
		Symbol:       "AAPL",
		Action:       models.ActionBuy,
		Confidence:   0.9,
		TargetPrice:  115,
		StrategyName: "llm",
		Reasoning:    "model says strong_buy on earnings momentum",
	}}
	agg := NewConsensusAggregator([]domsvc.Strategy{free}, nil)

	report := agg.Evaluate(context.Background(), models.MarketSnapshot{Symbol: "AAPL"})

	assert.Equal(t, 1, report.RecommendationDistribution[models.RecStrongBuy])
	assert.Equal(t, models.RecStrongBuy, report.ConsensusRecommendation)
}

func TestEvaluateSplitVoteHolds(t *testing.T) {
	strategies := []domsvc.Strategy{
		stratResult("a", models.ActionBuy, models.RecBuy, 0.7, 110),
		stratResult("b", models.ActionSell, models.RecSell, 0.7, 90),
	}
	agg := NewConsensusAggregator(strategies, nil)

	report := agg.Evaluate(context.Background(), models.MarketSnapshot{Symbol: "AAPL"})

	assert.Equal(t, models.ActionHold, report.ConsensusAction)
}
