package indicators

import (
	"math"

	"github.com/montanaflynn/stats"

	"TradePilot/internal/domain/models"
)

const (
	smaShortPeriod = 20
	smaLongPeriod  = 50
	rsiPeriod      = 14
	macdFast       = 12
	macdSlow       = 26
	macdSignal     = 9

	tradingDaysPerYear = 252
)

// Compute derives the full indicator set from a chronological candle series.
// Fewer than models.MinIndicatorBars bars yields the empty sentinel set
// (Valid=false); callers treat that as insufficient data, not as a failure.
// Deterministic and side-effect free.
func Compute(series []models.Candle) models.IndicatorSet {
	if len(series) < models.MinIndicatorBars {
		return models.IndicatorSet{}
	}

	closes := make([]float64, len(series))
	for i, c := range series {
		closes[i] = c.Close
	}

	macdLine, signalLine := macd(closes)

	return models.IndicatorSet{
		SMAShort:     meanOfLast(closes, smaShortPeriod),
		SMALong:      smaLong(closes),
		RSI:          rsi(closes, rsiPeriod),
		MACD:         macdLine,
		MACDSignal:   signalLine,
		CurrentPrice: closes[len(closes)-1],
		Valid:        true,
	}
}

func meanOfLast(xs []float64, n int) float64 {
	if len(xs) < n {
		n = len(xs)
	}
	sum := 0.0
	for _, v := range xs[len(xs)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// smaLong is the 50-bar mean, or the mean of all available closes when the
// series is shorter than 50.
func smaLong(closes []float64) float64 {
	if len(closes) >= smaLongPeriod {
		return meanOfLast(closes, smaLongPeriod)
	}
	return meanOfLast(closes, len(closes))
}

// rsi computes the Relative Strength Index over a simple rolling window of
// close-to-close deltas. A window with zero average loss yields 50, a
// neutral fallback rather than the mathematical limit of 100.
func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}
	window := closes[len(closes)-period-1:]
	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		avgGain += math.Max(delta, 0)
		avgLoss += math.Max(-delta, 0)
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 50
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ema computes the exponential moving average series with the standard
// smoothing factor 2/(span+1), seeded at the first value.
func ema(xs []float64, span int) []float64 {
	if len(xs) == 0 {
		return nil
	}
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(xs))
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// macd returns the latest MACD value (EMA12−EMA26) and its EMA9 signal line.
func macd(closes []float64) (line, signal float64) {
	fast := ema(closes, macdFast)
	slow := ema(closes, macdSlow)
	diff := make([]float64, len(closes))
	for i := range closes {
		diff[i] = fast[i] - slow[i]
	}
	sig := ema(diff, macdSignal)
	return diff[len(diff)-1], sig[len(sig)-1]
}

// PctReturns computes simple close-to-close returns, one per consecutive
// pair. Non-positive previous closes contribute a zero return.
func PctReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (closes[i]-prev)/prev)
	}
	return out
}

// AnnualizedVolatility is the sample standard deviation of daily returns
// scaled by sqrt(252). Returns 0 when fewer than two returns exist.
func AnnualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sd, err := stats.StandardDeviationSample(stats.Float64Data(returns))
	if err != nil {
		return 0
	}
	return sd * math.Sqrt(tradingDaysPerYear)
}
