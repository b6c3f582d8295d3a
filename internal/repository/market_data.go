package repository

import (
	"context"
	"fmt"
	"sync"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/services/indicators"
)

// CandleMarketData builds analyzer snapshots from the candle store and
// derives a coarse market-wide condition from a configurable basket of
// reference symbols.
type CandleMarketData struct {
	store  domrepo.CandleStore
	basket []string // symbols sampled for the market-wide condition

	mu       sync.RWMutex
	lastSeen map[string]float64 // last price per symbol, fed by the stream
}

func NewCandleMarketData(store domrepo.CandleStore, basket []string) *CandleMarketData {
	return &CandleMarketData{
		store:    store,
		basket:   basket,
		lastSeen: make(map[string]float64),
	}
}

// ObservePrice lets the ingestion path keep the snapshot's current price
// fresher than the last closed candle.
func (m *CandleMarketData) ObservePrice(symbol string, price float64) {
	m.mu.Lock()
	m.lastSeen[symbol] = price
	m.mu.Unlock()
}

func (m *CandleMarketData) Snapshot(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) (models.MarketSnapshot, error) {
	series, err := m.store.GetLatestNCandles(ctx, symbol, n, tf)
	if err != nil {
		return models.MarketSnapshot{}, fmt.Errorf("latest candles %s: %w", symbol, err)
	}
	if len(series) == 0 {
		return models.MarketSnapshot{}, fmt.Errorf("no candles for %s", symbol)
	}

	last := series[len(series)-1]
	price := last.Close
	m.mu.RLock()
	if p, ok := m.lastSeen[symbol]; ok && p > 0 {
		price = p
	}
	m.mu.RUnlock()

	return models.MarketSnapshot{
		Symbol:       symbol,
		CurrentPrice: price,
		Series:       series,
		Volume:       last.Volume,
		Timestamp:    last.Bucket,
	}, nil
}

// Condition estimates market-wide volatility from the basket's recent daily
// bars. Sentiment has no live feed; it is pinned neutral so only genuinely
// extreme volatility can trip the market-condition risk check.
func (m *CandleMarketData) Condition(ctx context.Context) (models.MarketCondition, error) {
	cond := models.MarketCondition{Volatility: 0.2, Sentiment: 0.5}
	if len(m.basket) == 0 {
		return cond, nil
	}

	var sum float64
	var n int
	for _, symbol := range m.basket {
		series, err := m.store.GetLatestNCandles(ctx, symbol, 60, domrepo.TF1d)
		if err != nil || len(series) < models.MinIndicatorBars {
			continue
		}
		closes := make([]float64, len(series))
		for i, c := range series {
			closes[i] = c.Close
		}
		sum += indicators.AnnualizedVolatility(indicators.PctReturns(closes))
		n++
	}
	if n > 0 {
		cond.Volatility = sum / float64(n)
	}
	return cond, nil
}

var _ domrepo.MarketData = (*CandleMarketData)(nil)
