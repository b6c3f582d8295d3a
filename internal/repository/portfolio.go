package repository

import (
	"context"
	"sync"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
)

// StaticPortfolio serves a config-seeded portfolio snapshot. There is no
// broker connectivity; positions and PnL change only through UpdatePnL and
// SetPositions, which the demo loop and tests drive.
type StaticPortfolio struct {
	mu    sync.RWMutex
	state models.PortfolioState
}

func NewStaticPortfolio(value float64, positions []models.Position) *StaticPortfolio {
	return &StaticPortfolio{state: models.PortfolioState{
		Positions:      positions,
		PortfolioValue: value,
	}}
}

func (p *StaticPortfolio) State(context.Context) (models.PortfolioState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	// copy so no caller can mutate shared positions
	out := p.state
	out.Positions = append([]models.Position(nil), p.state.Positions...)
	return out, nil
}

func (p *StaticPortfolio) UpdatePnL(pnl float64) {
	p.mu.Lock()
	p.state.DailyPnL = pnl
	p.mu.Unlock()
}

func (p *StaticPortfolio) SetPositions(positions []models.Position) {
	p.mu.Lock()
	p.state.Positions = append([]models.Position(nil), positions...)
	p.mu.Unlock()
}

var _ domrepo.Portfolio = (*StaticPortfolio)(nil)
