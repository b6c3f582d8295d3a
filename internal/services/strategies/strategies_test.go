package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
)

func snapshot(symbol string, closes []float64) models.MarketSnapshot {
	series := make([]models.Candle, len(closes))
	base := time.Now().Add(-time.Duration(len(closes)) * time.Minute)
	for i, c := range closes {
		series[i] = models.Candle{
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Symbol: symbol,
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 500,
		}
	}
	return models.MarketSnapshot{
		Symbol:       symbol,
		CurrentPrice: closes[len(closes)-1],
		Series:       series,
		Timestamp:    time.Now(),
	}
}

func TestMomentumUptrendBuys(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	s := NewMomentumStrategy()

	res, err := s.Analyze(context.Background(), snapshot("AAPL", closes))

	require.NoError(t, err)
	// pure uptrend: RSI sits at the zero-loss fallback and casts no vote,
	// price above SMA and positive MACD carry it unanimously
	assert.Equal(t, models.ActionBuy, res.Action)
	assert.Equal(t, models.RecBuy, res.Recommendation)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	assert.InDelta(t, res.TargetPrice, closes[len(closes)-1]*1.1, 1e-9)
}

func TestMomentumDowntrendSells(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	s := NewMomentumStrategy()

	res, err := s.Analyze(context.Background(), snapshot("TSLA", closes))

	require.NoError(t, err)
	// oversold RSI is outvoted by price below SMA and negative MACD
	assert.Equal(t, models.ActionSell, res.Action)
	assert.Equal(t, models.RecSell, res.Recommendation)
}

func TestMomentumInsufficientHistoryHolds(t *testing.T) {
	s := NewMomentumStrategy()

	res, err := s.Analyze(context.Background(), snapshot("NVDA", []float64{100, 101, 102}))

	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, res.Action)
	assert.Equal(t, 0.5, res.Confidence)
}

func TestMomentumHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMomentumStrategy()

	_, err := s.Analyze(ctx, snapshot("AAPL", []float64{100}))

	assert.Error(t, err)
}

func TestMeanReversionBuysOversoldStretch(t *testing.T) {
	// flat around 100, then a sharp 10% break that drags RSI down
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	for i := 30; i < 40; i++ {
		closes[i] = 100 - float64(i-29)
	}
	s := NewMeanReversionStrategy()

	res, err := s.Analyze(context.Background(), snapshot("AAPL", closes))

	require.NoError(t, err)
	assert.Equal(t, models.ActionBuy, res.Action)
	assert.Equal(t, models.RecBuy, res.Recommendation)
	assert.LessOrEqual(t, res.Confidence, 0.8)
	// reversion target is the mean, above the broken-down price
	assert.Greater(t, res.TargetPrice, closes[len(closes)-1])
}

func TestMeanReversionCalmMarketHolds(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%2)
	}
	s := NewMeanReversionStrategy()

	res, err := s.Analyze(context.Background(), snapshot("MSFT", closes))

	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, res.Action)
	assert.Equal(t, 0.3, res.Confidence)
}
