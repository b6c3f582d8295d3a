package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
)

type historyMarket struct {
	closes map[string][]float64
}

func (m *historyMarket) Snapshot(_ context.Context, symbol string, _ int, _ domrepo.Timeframe) (models.MarketSnapshot, error) {
	closes, ok := m.closes[symbol]
	if !ok {
		return models.MarketSnapshot{}, errors.New("no history")
	}
	series := make([]models.Candle, len(closes))
	base := time.Now().AddDate(0, 0, -len(closes))
	for i, c := range closes {
		series[i] = models.Candle{Bucket: base.AddDate(0, 0, i), Symbol: symbol, Close: c, Volume: 1_000_000}
	}
	return models.MarketSnapshot{Symbol: symbol, CurrentPrice: closes[len(closes)-1], Series: series}, nil
}

func (m *historyMarket) Condition(context.Context) (models.MarketCondition, error) {
	return models.MarketCondition{}, nil
}

func noisyCloses(n int, start float64) []float64 {
	closes := make([]float64, n)
	closes[0] = start
	for i := 1; i < n; i++ {
		// deterministic wobble, roughly ±1.5% per bar
		closes[i] = closes[i-1] * (1 + 0.015*math.Sin(float64(i)))
	}
	return closes
}

func TestMetricsEmptyPortfolio(t *testing.T) {
	uc := NewPortfolioRiskUseCase(
		&stubPortfolio{state: models.PortfolioState{PortfolioValue: 0}},
		&historyMarket{},
		nil,
	)

	risk, err := uc.Metrics(context.Background())

	require.NoError(t, err)
	assert.Zero(t, risk.TotalValue)
	assert.Zero(t, risk.VaR95)
}

func TestMetricsConcentration(t *testing.T) {
	port := &stubPortfolio{state: models.PortfolioState{
		Positions: []models.Position{
			{Symbol: "AAPL", Value: 50_000, Sector: "tech"},
			{Symbol: "MSFT", Value: 50_000, Sector: "tech"},
		},
		PortfolioValue: 200_000,
	}}
	market := &historyMarket{closes: map[string][]float64{
		"AAPL": noisyCloses(60, 100),
		"MSFT": noisyCloses(60, 300),
	}}
	uc := NewPortfolioRiskUseCase(port, market, nil)

	risk, err := uc.Metrics(context.Background())

	require.NoError(t, err)
	// two equal positions: Herfindahl = 2 * 0.5^2
	assert.InDelta(t, 0.5, risk.PositionConcentration, 1e-9)
	assert.InDelta(t, 0.5, risk.SectorConcentration["tech"], 1e-9)
	assert.Equal(t, 200_000.0, risk.TotalValue)
}

func TestMetricsTailRiskPositive(t *testing.T) {
	port := &stubPortfolio{state: models.PortfolioState{
		Positions:      []models.Position{{Symbol: "AAPL", Value: 100_000, Sector: "tech"}},
		PortfolioValue: 100_000,
	}}
	market := &historyMarket{closes: map[string][]float64{"AAPL": noisyCloses(120, 100)}}
	uc := NewPortfolioRiskUseCase(port, market, nil)

	risk, err := uc.Metrics(context.Background())

	require.NoError(t, err)
	assert.Greater(t, risk.VaR95, 0.0)
	// expected shortfall is at least as severe as VaR
	assert.GreaterOrEqual(t, risk.CVaR95, risk.VaR95-1e-6)
	assert.Greater(t, risk.MaxDrawdown, 0.0)
	assert.Zero(t, risk.LiquidityRisk)
}

func TestMetricsMissingHistoryRaisesLiquidityRisk(t *testing.T) {
	port := &stubPortfolio{state: models.PortfolioState{
		Positions: []models.Position{
			{Symbol: "AAPL", Value: 50_000},
			{Symbol: "OBSCURE", Value: 50_000},
		},
		PortfolioValue: 100_000,
	}}
	market := &historyMarket{closes: map[string][]float64{"AAPL": noisyCloses(60, 100)}}
	uc := NewPortfolioRiskUseCase(port, market, nil)

	risk, err := uc.Metrics(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 0.5, risk.LiquidityRisk, 1e-9)
}

func TestMetricsPortfolioErrorPropagates(t *testing.T) {
	uc := NewPortfolioRiskUseCase(&stubPortfolio{err: errors.New("down")}, &historyMarket{}, nil)

	_, err := uc.Metrics(context.Background())

	assert.Error(t, err)
}
