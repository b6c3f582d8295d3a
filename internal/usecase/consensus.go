package usecase

import (
	"context"
	"sync"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
	"TradePilot/pkg/logger"
)

// ConsensusAggregator fans a snapshot out to all registered whole-strategy
// implementations and majority-votes their results. Errored strategies are
// reported individually but excluded from every tally; they never count as
// HOLD votes.
type ConsensusAggregator struct {
	strategies []domsvc.Strategy
	threshold  float64
	log        *logger.Logger
}

func NewConsensusAggregator(strategies []domsvc.Strategy, log *logger.Logger) *ConsensusAggregator {
	return &ConsensusAggregator{
		strategies: strategies,
		threshold:  decisionThreshold,
		log:        log,
	}
}

// Evaluate runs every strategy concurrently and aggregates the verdicts.
func (c *ConsensusAggregator) Evaluate(ctx context.Context, snap models.MarketSnapshot) models.ConsensusReport {
	individual := make(map[string]models.StrategyResult, len(c.strategies))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, strat := range c.strategies {
		wg.Add(1)
		go func(strat domsvc.Strategy) {
			defer wg.Done()
			res, err := strat.Analyze(ctx, snap)
			if err != nil {
				res = models.StrategyResult{
					Symbol:       snap.Symbol,
					StrategyName: strat.Name(),
					Err:          err.Error(),
				}
				if c.log != nil {
					c.log.Warn("strategy failed",
						logger.String("strategy", strat.Name()),
						logger.String("symbol", snap.Symbol),
						logger.Error(err),
					)
				}
			}
			mu.Lock()
			individual[strat.Name()] = res
			mu.Unlock()
		}(strat)
	}
	wg.Wait()

	report := models.ConsensusReport{
		Symbol:                     snap.Symbol,
		ConsensusRecommendation:    models.RecHold,
		ConsensusAction:            models.ActionHold,
		RecommendationDistribution: map[models.Recommendation]int{},
		IndividualResults:          individual,
	}

	var sumTarget, sumConf float64
	for _, res := range individual {
		if res.Err != "" {
			continue
		}
		rec := res.Recommendation
		if rec == "" {
			rec = models.ParseRecommendation(res.Reasoning)
		}
		report.RecommendationDistribution[rec]++
		report.ModelCount++
		sumTarget += res.TargetPrice
		sumConf += res.Confidence
	}
	if report.ModelCount == 0 {
		return report
	}

	report.AverageTargetPrice = sumTarget / float64(report.ModelCount)
	report.AverageConfidence = sumConf / float64(report.ModelCount)
	report.ConsensusRecommendation = modalRecommendation(report.RecommendationDistribution)

	dist := report.RecommendationDistribution
	buyVotes := dist[models.RecStrongBuy] + dist[models.RecBuy]
	sellVotes := dist[models.RecSell] + dist[models.RecReduce]
	total := float64(report.ModelCount)
	switch {
	case float64(buyVotes)/total >= c.threshold:
		report.ConsensusAction = models.ActionBuy
	case float64(sellVotes)/total >= c.threshold:
		report.ConsensusAction = models.ActionSell
	}
	return report
}

// modalRecommendation returns the most voted label; ties resolve by the
// fixed declaration order, bullish first.
func modalRecommendation(dist map[models.Recommendation]int) models.Recommendation {
	best := models.RecHold
	bestCount := -1
	for _, rec := range models.RecommendationOrder {
		if n := dist[rec]; n > bestCount {
			best = rec
			bestCount = n
		}
	}
	return best
}
