package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
)

type stubPortfolio struct {
	state models.PortfolioState
	err   error
}

func (s *stubPortfolio) State(context.Context) (models.PortfolioState, error) {
	return s.state, s.err
}

type stubMarketData struct {
	snap models.MarketSnapshot
	cond models.MarketCondition
	err  error
}

func (s *stubMarketData) Snapshot(context.Context, string, int, domrepo.Timeframe) (models.MarketSnapshot, error) {
	return s.snap, nil
}

func (s *stubMarketData) Condition(context.Context) (models.MarketCondition, error) {
	return s.cond, s.err
}

func calmSnapshot(symbol string, price float64, bars int) models.MarketSnapshot {
	series := make([]models.Candle, bars)
	base := time.Now().Add(-time.Duration(bars) * time.Minute)
	for i := range series {
		series[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Symbol: symbol,
			Close:  price,
			Volume: 1_000_000,
		}
	}
	return models.MarketSnapshot{Symbol: symbol, CurrentPrice: price, Series: series, Volume: 1_000_000, Timestamp: time.Now()}
}

func checkByName(t *testing.T, a models.RiskAssessment, name string) models.CheckResult {
	t.Helper()
	for _, c := range a.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not found", name)
	return models.CheckResult{}
}

func healthyPortfolio() *stubPortfolio {
	return &stubPortfolio{state: models.PortfolioState{
		Positions:      []models.Position{{Symbol: "MSFT", Value: 30_000, Sector: "tech"}},
		PortfolioValue: 500_000,
		DailyPnL:       1_000,
	}}
}

func calmMarket() *stubMarketData {
	return &stubMarketData{cond: models.MarketCondition{Volatility: 0.2, Sentiment: 0.6}}
}

func TestValidateApprovesHealthySignal(t *testing.T) {
	g := NewRiskGate(healthyPortfolio(), calmMarket(), DefaultRiskParams(), nil)
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.8, Quantity: 100}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 50, 60))

	require.True(t, a.IsApproved)
	assert.Equal(t, models.RiskLow, a.RiskLevel)
	assert.Equal(t, 1.0, a.ConfidenceScore)
	assert.Len(t, a.Checks, 6)
	for _, c := range a.Checks {
		assert.True(t, c.Passed, c.Name+": "+c.Message)
	}
}

func TestValidateCapsPositionSize(t *testing.T) {
	g := NewRiskGate(healthyPortfolio(), calmMarket(), DefaultRiskParams(), nil)
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 10_000}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 50, 60))

	// 500k * 0.1 / 50 = 1000 shares, well under the 10k requested
	assert.InDelta(t, 1000, a.MaxPositionSize, 1e-9)
}

func TestValidateNeverGrowsPosition(t *testing.T) {
	g := NewRiskGate(healthyPortfolio(), calmMarket(), DefaultRiskParams(), nil)
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 10}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 50, 60))

	assert.InDelta(t, 10, a.MaxPositionSize, 1e-9)
}

func TestValidateRejectsWhenMajorityChecksFail(t *testing.T) {
	port := &stubPortfolio{state: models.PortfolioState{
		Positions:      []models.Position{{Symbol: "MSFT", Value: 450_000}},
		PortfolioValue: 500_000,
		DailyPnL:       -25_000, // -5% day, limit is 3%
	}}
	market := &stubMarketData{cond: models.MarketCondition{Volatility: 0.9, Sentiment: 0.1}}
	g := NewRiskGate(port, market, DefaultRiskParams(), nil)
	// oversized, illiquid order into a panicked market
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 2_000_000}

	snap := calmSnapshot("AAPL", 50, 60)
	a := g.Validate(context.Background(), sig, snap)

	require.False(t, a.IsApproved)
	assert.Equal(t, models.RiskHigh, a.RiskLevel)
	assert.Contains(t, a.RejectionReason, "risk checks failed")
	assert.Less(t, a.ConfidenceScore, 0.5+1e-9)
}

func TestValidateAllChecksCompleteDespiteFailures(t *testing.T) {
	port := &stubPortfolio{err: errors.New("portfolio service down")}
	g := NewRiskGate(port, calmMarket(), DefaultRiskParams(), nil)
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 100}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 50, 60))

	// infrastructure errors become failed checks, never aborted evaluations
	assert.Len(t, a.Checks, 6)
	failed := 0
	for _, c := range a.Checks {
		if !c.Passed {
			failed++
			assert.Contains(t, c.Message, "unavailable")
		}
	}
	assert.Equal(t, 2, failed)
	assert.Equal(t, models.RiskMedium, a.RiskLevel)
	assert.True(t, a.IsApproved)
}

func TestValidateShortHistorySkipsVolatilityCheck(t *testing.T) {
	g := NewRiskGate(healthyPortfolio(), calmMarket(), DefaultRiskParams(), nil)
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 100}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 50, 5))

	for _, c := range a.Checks {
		if c.Name == "volatility" {
			assert.True(t, c.Passed)
			assert.Contains(t, c.Message, "insufficient data")
		}
	}
}

func TestValidateLiquidityComparesNotionalToVolume(t *testing.T) {
	g := NewRiskGate(healthyPortfolio(), calmMarket(), DefaultRiskParams(), nil)
	// few shares, but at 500 each the notional is 50k against a 10k bound
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 100}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 500, 60))

	liq := checkByName(t, a, "liquidity")
	assert.False(t, liq.Passed)
	assert.Contains(t, liq.Message, "recent volume")
}

func TestValidateLiquiditySkipsWithoutVolume(t *testing.T) {
	g := NewRiskGate(healthyPortfolio(), calmMarket(), DefaultRiskParams(), nil)
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 100}
	snap := calmSnapshot("AAPL", 50, 60)
	snap.Volume = 0

	a := g.Validate(context.Background(), sig, snap)

	assert.True(t, checkByName(t, a, "liquidity").Passed)
}

func TestValidatePositionLimitAllowsInvestedPortfolio(t *testing.T) {
	// more than half the portfolio already deployed; a small add must pass
	port := &stubPortfolio{state: models.PortfolioState{
		Positions:      []models.Position{{Symbol: "MSFT", Value: 500_000}},
		PortfolioValue: 1_000_000,
	}}
	g := NewRiskGate(port, calmMarket(), DefaultRiskParams(), nil)
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 10}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 100, 60))

	pos := checkByName(t, a, "position_limit")
	assert.True(t, pos.Passed, pos.Message)
}

func TestValidatePositionLimitCapsProjectedExposure(t *testing.T) {
	g := NewRiskGate(healthyPortfolio(), calmMarket(), DefaultRiskParams(), nil)
	// 30k held + 650k buy > 500k * 1.3
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 13_000}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 50, 60))

	pos := checkByName(t, a, "position_limit")
	assert.False(t, pos.Passed)
	assert.Contains(t, pos.Message, "projected exposure")
}

func TestValidateSellDoesNotRaiseExposure(t *testing.T) {
	g := NewRiskGate(healthyPortfolio(), calmMarket(), DefaultRiskParams(), nil)
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionSell, Quantity: 13_000}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 50, 60))

	assert.True(t, checkByName(t, a, "position_limit").Passed)
}

func TestValidateUnsizedSignalGetsZeroPosition(t *testing.T) {
	g := NewRiskGate(healthyPortfolio(), calmMarket(), DefaultRiskParams(), nil)
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.8}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 50, 60))

	require.True(t, a.IsApproved)
	assert.Zero(t, a.MaxPositionSize)
}

func TestValidateRejectionZeroesPositionSize(t *testing.T) {
	port := &stubPortfolio{state: models.PortfolioState{
		Positions:      []models.Position{{Symbol: "MSFT", Value: 450_000}},
		PortfolioValue: 500_000,
		DailyPnL:       -25_000,
	}}
	market := &stubMarketData{cond: models.MarketCondition{Volatility: 0.9, Sentiment: 0.1}}
	g := NewRiskGate(port, market, DefaultRiskParams(), nil)
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 2_000_000}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 50, 60))

	require.False(t, a.IsApproved)
	assert.Zero(t, a.MaxPositionSize)
}

func TestValidateConfidenceTracksFailures(t *testing.T) {
	market := &stubMarketData{cond: models.MarketCondition{Volatility: 0.9, Sentiment: 0.6}}
	g := NewRiskGate(healthyPortfolio(), market, DefaultRiskParams(), nil)
	sig := models.TradeSignal{Symbol: "AAPL", Action: models.ActionBuy, Quantity: 100}

	a := g.Validate(context.Background(), sig, calmSnapshot("AAPL", 50, 60))

	// exactly one failed check: 1 - 1/6
	assert.InDelta(t, 1-1.0/6.0, a.ConfidenceScore, 1e-9)
	assert.Equal(t, models.RiskLow, a.RiskLevel)
}
