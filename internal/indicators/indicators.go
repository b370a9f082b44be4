package indicators

import (
	"math"

	"trend-level-bot/internal/market"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA calculates the Simple Moving Average of closes over the trailing period.
func SMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// EMA calculates the Exponential Moving Average of closes, seeded with the
// SMA of the first period bars.
func EMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	ema := SMA(candles[:period], period)
	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(candles); i++ {
		ema = candles[i].Close*multiplier + ema*(1-multiplier)
	}
	return ema
}

// ============================================================================
// ATR (Average True Range)
// ============================================================================

// TrueRange returns the true range of bar i given its predecessor.
func TrueRange(cur, prev market.Candle) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// ATR calculates the Average True Range as a simple moving average of the
// true range over the trailing period.
func ATR(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += TrueRange(candles[i], candles[i-1])
	}
	return sum / float64(period)
}

// ============================================================================
// RSI (Relative Strength Index, Wilder smoothing)
// ============================================================================

// RSISeries computes the full Wilder-smoothed RSI series aligned to the
// input closes. Entries before the first computable point are zero.
func RSISeries(closes []float64, period int) []float64 {
	rsi := make([]float64, len(closes))
	if period <= 0 || len(closes) < period+1 {
		return rsi
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	rsi[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i-1]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i-1]) / float64(period)
		rsi[i] = rsiValue(avgGain, avgLoss)
	}
	return rsi
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ============================================================================
// VWAP
// ============================================================================

// VWAP computes the cumulative Volume Weighted Average Price across the
// given session candles.
func VWAP(candles []market.Candle) float64 {
	cumTPV := 0.0
	cumVol := 0.0
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3.0
		cumTPV += typical * c.Volume
		cumVol += c.Volume
	}
	if cumVol == 0 {
		return 0
	}
	return cumTPV / cumVol
}

// ============================================================================
// VOLUME
// ============================================================================

// MeanVolume calculates the average volume over the trailing period. When
// fewer bars are available, the full slice is used.
func MeanVolume(candles []market.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if period <= 0 || len(candles) < period {
		period = len(candles)
	}
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	return sum / float64(period)
}
