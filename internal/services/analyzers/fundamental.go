package analyzers

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"TradePilot/internal/domain/models"
	domsvc "TradePilot/internal/domain/service"
)

// FundamentalAnalyzer is a mock stand-in for a real fundamentals engine.
// It produces a valuation score in [0.1, 0.9] that is stable for a given
// symbol within a trading day, so repeated requests agree with the cached
// recommendation a dashboard already showed.
type FundamentalAnalyzer struct {
	weight float64
	delay  time.Duration
	seed   func(symbol string) int64
}

type FundamentalOption func(*FundamentalAnalyzer)

// WithFundamentalDelay simulates upstream latency; the analyzer falls back
// to HOLD when ctx expires first.
func WithFundamentalDelay(d time.Duration) FundamentalOption {
	return func(a *FundamentalAnalyzer) { a.delay = d }
}

// WithFundamentalSeed overrides daily seeding, used by tests.
func WithFundamentalSeed(fn func(symbol string) int64) FundamentalOption {
	return func(a *FundamentalAnalyzer) { a.seed = fn }
}

func NewFundamentalAnalyzer(weight float64, opts ...FundamentalOption) *FundamentalAnalyzer {
	a := &FundamentalAnalyzer{weight: weight, seed: dailySeed}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *FundamentalAnalyzer) Name() string { return "fundamental" }

func (a *FundamentalAnalyzer) Analyze(ctx context.Context, snap models.MarketSnapshot) models.TradeSignal {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return models.HoldSignal(snap.Symbol, "fundamental analysis timed out")
		}
	}

	rng := rand.New(rand.NewSource(a.seed(snap.Symbol)))
	score := clampScore(rng.NormFloat64()*0.2 + 0.6)

	price := snap.CurrentPrice
	var action models.Action
	var target, stop float64
	var reason string
	switch {
	case score >= 0.7:
		action = models.ActionBuy
		target = price * 1.12
		stop = price * 0.92
		reason = "strong fundamentals, fair valuation"
	case score <= sellScoreThreshold:
		action = models.ActionSell
		target = price * 0.88
		stop = price * 1.08
		reason = "weak fundamentals, stretched valuation"
	default:
		action = models.ActionHold
		target = price
		stop = price * 0.98
		reason = "neutral fundamentals"
	}

	return models.TradeSignal{
		Symbol:      snap.Symbol,
		Action:      action,
		Confidence:  scoreConfidence(score) * a.weight,
		TargetPrice: target,
		StopLoss:    stop,
		Reasoning:   reason,
		Source:      a.Name(),
		Timestamp:   time.Now(),
	}
}

func clampScore(s float64) float64 {
	if s < 0.1 {
		return 0.1
	}
	if s > 0.9 {
		return 0.9
	}
	return s
}

// dailySeed hashes symbol and UTC date so mock scores hold still for a day.
func dailySeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte(time.Now().UTC().Format("2006-01-02")))
	return int64(h.Sum64())
}

var _ domsvc.Analyzer = (*FundamentalAnalyzer)(nil)
