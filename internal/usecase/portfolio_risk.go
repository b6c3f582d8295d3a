package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/services/indicators"
	"TradePilot/pkg/logger"
)

// PortfolioRiskUseCase derives portfolio-level risk metrics from the current
// holdings and each symbol's recent price history. The estimates are
// deliberately simple (historical VaR, weighted return series); they inform
// a dashboard, not a margin engine.
type PortfolioRiskUseCase struct {
	portfolio domrepo.Portfolio
	market    domrepo.MarketData
	bars      int
	log       *logger.Logger
}

func NewPortfolioRiskUseCase(portfolio domrepo.Portfolio, market domrepo.MarketData, log *logger.Logger) *PortfolioRiskUseCase {
	return &PortfolioRiskUseCase{portfolio: portfolio, market: market, bars: 100, log: log}
}

// Metrics computes the current PortfolioRisk. An empty portfolio yields the
// zero report rather than an error.
func (uc *PortfolioRiskUseCase) Metrics(ctx context.Context) (models.PortfolioRisk, error) {
	port, err := uc.portfolio.State(ctx)
	if err != nil {
		return models.PortfolioRisk{}, fmt.Errorf("portfolio state: %w", err)
	}

	risk := models.PortfolioRisk{
		TotalValue:          port.PortfolioValue,
		SectorConcentration: map[string]float64{},
		Beta:                1.0, // no benchmark feed wired, assume market beta
	}
	if len(port.Positions) == 0 || port.PortfolioValue <= 0 {
		return risk, nil
	}

	gross := port.GrossExposure()
	var herfindahl float64
	weights := make(map[string]float64, len(port.Positions))
	for _, pos := range port.Positions {
		w := pos.Value / gross
		weights[pos.Symbol] = w
		herfindahl += w * w
		if pos.Sector != "" {
			risk.SectorConcentration[pos.Sector] += pos.Value / port.PortfolioValue
		}
	}
	risk.PositionConcentration = herfindahl

	rets, illiquid := uc.weightedReturns(ctx, port, weights)
	risk.LiquidityRisk = illiquid
	if len(rets) < 2 {
		return risk, nil
	}

	risk.MaxDrawdown = maxDrawdown(rets)
	risk.SharpeRatio = sharpe(rets)

	sorted := append([]float64(nil), rets...)
	sort.Float64s(sorted)
	if v, err := stats.Percentile(stats.Float64Data(sorted), 5); err == nil {
		risk.VaR95 = -v * port.PortfolioValue
	}
	risk.CVaR95 = cvar(sorted, port.PortfolioValue)
	return risk, nil
}

// weightedReturns builds the portfolio's daily return series from the
// per-position histories. Positions whose history cannot be fetched are
// skipped and counted toward liquidity risk.
func (uc *PortfolioRiskUseCase) weightedReturns(ctx context.Context, port models.PortfolioState, weights map[string]float64) ([]float64, float64) {
	var series [][]float64
	var seriesWeights []float64
	missing := 0
	minLen := math.MaxInt32

	for _, pos := range port.Positions {
		snap, err := uc.market.Snapshot(ctx, pos.Symbol, uc.bars, domrepo.TF1d)
		if err != nil || len(snap.Series) < 2 {
			missing++
			if uc.log != nil && err != nil {
				uc.log.Debug("risk metrics missing history", logger.String("symbol", pos.Symbol))
			}
			continue
		}
		rets := indicators.PctReturns(snap.Closes())
		series = append(series, rets)
		seriesWeights = append(seriesWeights, weights[pos.Symbol])
		if len(rets) < minLen {
			minLen = len(rets)
		}
	}
	illiquid := float64(missing) / float64(len(port.Positions))
	if len(series) == 0 {
		return nil, illiquid
	}

	out := make([]float64, minLen)
	for i := 0; i < minLen; i++ {
		for j, rets := range series {
			// align on the most recent bars
			out[i] += seriesWeights[j] * rets[len(rets)-minLen+i]
		}
	}
	return out, illiquid
}

// cvar averages the losses beyond the 5% tail. rets must be sorted asc.
func cvar(sorted []float64, totalValue float64) float64 {
	tail := len(sorted) / 20
	if tail == 0 {
		tail = 1
	}
	var sum float64
	for _, r := range sorted[:tail] {
		sum += r
	}
	return -(sum / float64(tail)) * totalValue
}

func maxDrawdown(rets []float64) float64 {
	equity := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range rets {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > worst {
			worst = dd
		}
	}
	return worst
}

func sharpe(rets []float64) float64 {
	mean, err := stats.Mean(stats.Float64Data(rets))
	if err != nil {
		return 0
	}
	sd, err := stats.StandardDeviationSample(stats.Float64Data(rets))
	if err != nil || sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(252)
}
