package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	domsvc "TradePilot/internal/domain/service"
)

type stubAnalyzer struct {
	name  string
	sig   models.TradeSignal
	delay time.Duration
}

func (a *stubAnalyzer) Name() string { return a.name }

func (a *stubAnalyzer) Analyze(ctx context.Context, snap models.MarketSnapshot) models.TradeSignal {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return models.HoldSignal(snap.Symbol, a.name+" cancelled")
		}
	}
	sig := a.sig
	sig.Symbol = snap.Symbol
	sig.Source = a.name
	return sig
}

type multiSnapMarket struct {
	snaps map[string]models.MarketSnapshot
}

func (m *multiSnapMarket) Snapshot(_ context.Context, symbol string, _ int, _ domrepo.Timeframe) (models.MarketSnapshot, error) {
	return m.snaps[symbol], nil
}

func (m *multiSnapMarket) Condition(context.Context) (models.MarketCondition, error) {
	return models.MarketCondition{Volatility: 0.2, Sentiment: 0.6}, nil
}

type capturingPublisher struct {
	published []models.TradeSignal
}

func (p *capturingPublisher) PublishSignal(_ context.Context, sig models.TradeSignal, _ models.RiskAssessment) error {
	p.published = append(p.published, sig)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func buyAnalyzer(name string, conf float64) *stubAnalyzer {
	return &stubAnalyzer{name: name, sig: models.TradeSignal{
		Action: models.ActionBuy, Confidence: conf, TargetPrice: 108, StopLoss: 94, Reasoning: "bullish",
	}}
}

func pipelineMarket(symbols ...string) *multiSnapMarket {
	m := &multiSnapMarket{snaps: map[string]models.MarketSnapshot{}}
	for _, s := range symbols {
		m.snaps[s] = calmSnapshot(s, 100, 60)
	}
	return m
}

func newTestPipeline(market domrepo.MarketData, analyzers []domsvc.Analyzer, pub domrepo.SignalPublisher, opts ...PipelineOption) *SignalPipeline {
	gate := NewRiskGate(healthyPortfolio(), calmMarket(), DefaultRiskParams(), nil)
	return NewSignalPipeline(market, analyzers, NewSignalFuser(), gate, pub, nil, nil, opts...)
}

func TestGenerateSignalApprovedBuyIsPublished(t *testing.T) {
	pub := &capturingPublisher{}
	p := newTestPipeline(pipelineMarket("AAPL"),
		[]domsvc.Analyzer{buyAnalyzer("technical", 0.25), buyAnalyzer("fundamental", 0.30)},
		pub,
	)

	d, err := p.GenerateSignal(context.Background(), GenerateSignalParams{Symbol: "AAPL", Quantity: 100})

	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, d.Signal.Action)
	assert.True(t, d.Assessment.IsApproved)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "AAPL", pub.published[0].Symbol)
}

func TestGenerateSignalHoldNotPublished(t *testing.T) {
	pub := &capturingPublisher{}
	hold := &stubAnalyzer{name: "technical", sig: models.HoldSignal("", "no edge")}
	p := newTestPipeline(pipelineMarket("AAPL"), []domsvc.Analyzer{hold}, pub)

	d, err := p.GenerateSignal(context.Background(), GenerateSignalParams{Symbol: "AAPL"})

	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, d.Signal.Action)
	assert.Empty(t, pub.published)
}

func TestGenerateSignalRequiresSymbol(t *testing.T) {
	p := newTestPipeline(pipelineMarket(), nil, nil)

	_, err := p.GenerateSignal(context.Background(), GenerateSignalParams{})

	assert.Error(t, err)
}

func TestGenerateSignalSlowAnalyzerDegradesToHold(t *testing.T) {
	slow := &stubAnalyzer{
		name:  "fundamental",
		delay: time.Second,
		sig:   models.TradeSignal{Action: models.ActionSell, Confidence: 0.9},
	}
	p := newTestPipeline(pipelineMarket("AAPL"),
		[]domsvc.Analyzer{buyAnalyzer("technical", 0.25), slow},
		nil,
		WithAnalyzerTimeout(20*time.Millisecond),
	)

	d, err := p.GenerateSignal(context.Background(), GenerateSignalParams{Symbol: "AAPL"})

	require.NoError(t, err)
	// the slow seller never votes, the lone buyer carries the decision
	assert.Equal(t, models.ActionBuy, d.Signal.Action)
	assert.Contains(t, d.Signal.Reasoning, "timed out")
}

// perSymbolAnalyzer votes differently per symbol so one pipeline can produce
// an ordering worth asserting on.
type perSymbolAnalyzer struct {
	name  string
	votes map[string]models.TradeSignal
}

func (a *perSymbolAnalyzer) Name() string { return a.name }

func (a *perSymbolAnalyzer) Analyze(_ context.Context, snap models.MarketSnapshot) models.TradeSignal {
	sig, ok := a.votes[snap.Symbol]
	if !ok {
		return models.HoldSignal(snap.Symbol, "no view")
	}
	sig.Symbol = snap.Symbol
	sig.Source = a.Name()
	return sig
}

func TestGenerateSignalsSortsAndFiltersHolds(t *testing.T) {
	// STRONG gets a unanimous buy, WEAK a contested one, FLAT only holds
	technical := &perSymbolAnalyzer{name: "technical", votes: map[string]models.TradeSignal{
		"WEAK":   {Action: models.ActionBuy, Confidence: 0.3, TargetPrice: 108, StopLoss: 94},
		"STRONG": {Action: models.ActionBuy, Confidence: 0.45, TargetPrice: 108, StopLoss: 94},
	}}
	ai := &perSymbolAnalyzer{name: "ai", votes: map[string]models.TradeSignal{
		"WEAK":   {Action: models.ActionSell, Confidence: 0.15, TargetPrice: 92, StopLoss: 106},
		"STRONG": {Action: models.ActionBuy, Confidence: 0.45, TargetPrice: 108, StopLoss: 94},
	}}
	market := pipelineMarket("WEAK", "STRONG", "FLAT")
	p := newTestPipeline(market, []domsvc.Analyzer{technical, ai}, nil)

	out := p.GenerateSignals(context.Background(), []string{"WEAK", "STRONG", "FLAT"}, 0, "")

	// FLAT holds and is dropped; the rest come strongest first
	require.Len(t, out, 2)
	assert.Equal(t, "STRONG", out[0].Signal.Symbol)
	assert.InDelta(t, 1.0, out[0].Signal.Confidence, 1e-9)
	assert.Equal(t, "WEAK", out[1].Signal.Symbol)
	assert.InDelta(t, 0.3/0.45, out[1].Signal.Confidence, 1e-9)
}
