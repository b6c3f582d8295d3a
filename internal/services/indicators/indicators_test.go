package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/domain/models"
)

func flatSeries(n int, price float64) []models.Candle {
	out := make([]models.Candle, n)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Candle{
			Bucket: base.AddDate(0, 0, i),
			Symbol: "TEST",
			Open:   price, High: price, Low: price, Close: price,
			Volume: 1_000_000,
		}
	}
	return out
}

func trendSeries(n int, start, step float64) []models.Candle {
	out := make([]models.Candle, n)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		p := start + float64(i)*step
		out[i] = models.Candle{Bucket: base.AddDate(0, 0, i), Symbol: "TEST", Open: p, High: p, Low: p, Close: p, Volume: 1_000_000}
	}
	return out
}

func TestComputeInsufficientData(t *testing.T) {
	for _, n := range []int{0, 1, 10, 19} {
		got := Compute(flatSeries(n, 100))
		assert.False(t, got.Valid, "series of %d bars must yield the sentinel set", n)
		assert.Zero(t, got.RSI)
	}
}

func TestComputeFlatSeries(t *testing.T) {
	got := Compute(flatSeries(20, 100))
	require.True(t, got.Valid)
	assert.InDelta(t, 100.0, got.SMAShort, 1e-9)
	assert.InDelta(t, 100.0, got.SMALong, 1e-9)
	// zero deltas mean zero average gain and loss, which falls back to 50
	assert.Equal(t, 50.0, got.RSI)
	assert.InDelta(t, 0.0, got.MACD, 1e-9)
	assert.InDelta(t, 0.0, got.MACDSignal, 1e-9)
	assert.Equal(t, 100.0, got.CurrentPrice)
}

func TestComputeAllFieldsFinite(t *testing.T) {
	got := Compute(trendSeries(60, 50, 1.5))
	require.True(t, got.Valid)
	for name, v := range map[string]float64{
		"sma_short": got.SMAShort, "sma_long": got.SMALong,
		"rsi": got.RSI, "macd": got.MACD, "macd_signal": got.MACDSignal,
		"current_price": got.CurrentPrice,
	} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s must be finite", name)
	}
}

func TestSMALongFallsBackToFullMean(t *testing.T) {
	series := trendSeries(30, 100, 1) // closes 100..129
	got := Compute(series)
	require.True(t, got.Valid)
	// fewer than 50 bars: long SMA is the mean of all closes
	assert.InDelta(t, 114.5, got.SMALong, 1e-9)
	// short SMA is the mean of the last 20 closes (110..129)
	assert.InDelta(t, 119.5, got.SMAShort, 1e-9)
}

func TestRSIBounds(t *testing.T) {
	cases := [][]models.Candle{
		trendSeries(40, 100, 2),    // monotonic up: no losses -> fallback 50
		trendSeries(40, 200, -2),   // monotonic down
		flatSeries(40, 75),         // flat
		alternatingSeries(40, 100), // mixed
	}
	for _, series := range cases {
		got := Compute(series)
		require.True(t, got.Valid)
		assert.GreaterOrEqual(t, got.RSI, 0.0)
		assert.LessOrEqual(t, got.RSI, 100.0)
	}
}

func TestRSIZeroLossFallback(t *testing.T) {
	// strictly rising closes: the rolling window has no losses at all
	got := Compute(trendSeries(40, 100, 1))
	require.True(t, got.Valid)
	assert.Equal(t, 50.0, got.RSI)
}

func TestRSIDowntrendIsLow(t *testing.T) {
	got := Compute(trendSeries(40, 200, -2))
	require.True(t, got.Valid)
	assert.Less(t, got.RSI, 30.0)
}

func alternatingSeries(n int, base float64) []models.Candle {
	out := make([]models.Candle, n)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		p := base
		if i%2 == 0 {
			p += 3
		} else {
			p -= 2
		}
		out[i] = models.Candle{Bucket: start.AddDate(0, 0, i), Symbol: "TEST", Close: p, Open: p, High: p + 1, Low: p - 1, Volume: 500}
	}
	return out
}

func TestMACDUptrendPositive(t *testing.T) {
	got := Compute(trendSeries(60, 100, 2))
	require.True(t, got.Valid)
	// fast EMA tracks a rising series more closely than the slow EMA
	assert.Greater(t, got.MACD, 0.0)
}

func TestEMAConverges(t *testing.T) {
	xs := make([]float64, 200)
	for i := range xs {
		xs[i] = 42
	}
	out := ema(xs, 12)
	assert.InDelta(t, 42.0, out[len(out)-1], 1e-9)
}

func TestPctReturns(t *testing.T) {
	closes := []float64{100, 110, 120}
	rets := PctReturns(closes)
	require.Len(t, rets, 2)
	assert.InDelta(t, 0.10, rets[0], 1e-9)
	assert.InDelta(t, 10.0/110.0, rets[1], 1e-9)

	assert.Nil(t, PctReturns(closes[:1]))
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Zero(t, AnnualizedVolatility(nil))
	assert.Zero(t, AnnualizedVolatility([]float64{0.01}))

	flat := make([]float64, 30)
	assert.Zero(t, AnnualizedVolatility(flat))

	noisy := []float64{0.02, -0.01, 0.03, -0.02, 0.01, -0.03, 0.02, -0.01}
	v := AnnualizedVolatility(noisy)
	assert.Greater(t, v, 0.0)
	assert.False(t, math.IsNaN(v))
}
