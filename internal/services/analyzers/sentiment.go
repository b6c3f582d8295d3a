package analyzers

import (
	"context"
	"math/rand"
	"time"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
)

// SentimentAnalyzer is a mock stand-in for a news/social sentiment engine,
// sharing the daily-stable seeding scheme of the fundamental mock.
type SentimentAnalyzer struct {
	weight float64
	delay  time.Duration
	seed   func(symbol string) int64
}

type SentimentOption func(*SentimentAnalyzer)

func WithSentimentDelay(d time.Duration) SentimentOption {
	return func(a *SentimentAnalyzer) { a.delay = d }
}

func WithSentimentSeed(fn func(symbol string) int64) SentimentOption {
	return func(a *SentimentAnalyzer) { a.seed = fn }
}

func NewSentimentAnalyzer(weight float64, opts ...SentimentOption) *SentimentAnalyzer {
	a := &SentimentAnalyzer{weight: weight, seed: dailySeed}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *SentimentAnalyzer) Name() string { return "sentiment" }

func (a *SentimentAnalyzer) Analyze(ctx context.Context, snap models.MarketSnapshot) models.TradeSignal {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return models.HoldSignal(snap.Symbol, "sentiment analysis timed out")
		}
	}

	// widen the distribution relative to the fundamental mock: sentiment
	// swings harder than valuations do
	rng := rand.New(rand.NewSource(a.seed(snap.Symbol) ^ 0x5e17))
	score := clampScore(rng.NormFloat64()*0.3 + 0.5)

	price := snap.CurrentPrice
	var action models.Action
	var reason string
	switch {
	case score >= buyScoreThreshold:
		action = models.ActionBuy
		reason = "market sentiment bullish"
	case score <= sellScoreThreshold:
		action = models.ActionSell
		reason = "market sentiment bearish"
	default:
		action = models.ActionHold
		reason = "market sentiment neutral"
	}

	return models.TradeSignal{
		Symbol:      snap.Symbol,
		Action:      action,
		Confidence:  scoreConfidence(score) * a.weight,
		TargetPrice: price,
		StopLoss:    price * 0.98,
		Reasoning:   reason,
		Source:      a.Name(),
		Timestamp:   time.Now(),
	}
}

var _ domsvc.Analyzer = (*SentimentAnalyzer)(nil)
