// Package engine contains the level detection strategies. All engines are
// pure functions of their input: no shared state, no blocking, safe to run
// concurrently for different symbols.
package engine

import (
	"math"

	"trend-level-bot/internal/indicators"
	"trend-level-bot/internal/levels"
	"trend-level-bot/internal/market"
)

// SessionInfo carries the session-scoped context supplied by the external
// session/pivot provider.
type SessionInfo struct {
	Pivots      *indicators.SessionPivots
	VWAP        market.Scalar
	PrevDayHigh market.Scalar
	PrevDayLow  market.Scalar
}

// Indicators carries pre-fetched scalar indicators for the base timeframe.
// Absent values contribute nothing; they never fail a detection.
type Indicators struct {
	ATR    market.Scalar
	EMA200 market.Scalar
}

// Input is the full context for one detection call.
type Input struct {
	Symbol        string
	Candles       map[string][]market.Candle // keyed by timeframe
	BaseTimeframe string                     // defaults to 15m
	Session       SessionInfo
	Indicators    Indicators
	TickSize      float64 // 0 means infer from the signal price
	Side          levels.Side
	SmashedLevels []float64 // prices invalidated recently by observed breaks
}

// Detector is the common contract of all level detection strategies. A nil
// candidate means "no tradable level", which is an expected outcome, not
// an error.
type Detector interface {
	Name() string
	Detect(in Input) *levels.Candidate
}

// baseCandles returns the candle series the engine anchors on, falling
// back through common timeframes when the requested one is missing.
func baseCandles(in Input) []market.Candle {
	tf := in.BaseTimeframe
	if tf == "" {
		tf = market.Timeframe15m
	}
	if c := in.Candles[tf]; len(c) > 0 {
		return c
	}
	for _, fallback := range []string{market.Timeframe15m, market.Timeframe5m, market.Timeframe30m, market.Timeframe1h} {
		if c := in.Candles[fallback]; len(c) > 0 {
			return c
		}
	}
	return nil
}

// signalPrice is the last close of the base series, the reference price
// for tolerance and gap checks.
func signalPrice(in Input) (float64, bool) {
	base := baseCandles(in)
	if len(base) == 0 {
		return 0, false
	}
	return base[len(base)-1].Close, true
}

// tickFor resolves the tick size, inferring it from price when the caller
// did not supply one.
func tickFor(in Input, price float64) float64 {
	if in.TickSize > 0 {
		return in.TickSize
	}
	return levels.TickSize(price)
}

// smashedNear reports whether a recently invalidated level sits within
// tolerance of the candidate price.
func smashedNear(price, tolerance float64, smashed []float64) bool {
	for _, s := range smashed {
		if math.Abs(price-s) <= tolerance {
			return true
		}
	}
	return false
}

// volumeRejectionNear scans the trailing bars for a wick that probed the
// level on above-average volume and closed back on the trade side of it.
func volumeRejectionNear(candles []market.Candle, price, tolerance float64, side levels.Side) bool {
	if len(candles) < 2 {
		return false
	}
	avgVol := indicators.MeanVolume(candles, 20)
	start := len(candles) - 10
	if start < 0 {
		start = 0
	}
	for i := start; i < len(candles); i++ {
		c := candles[i]
		if c.Volume <= avgVol {
			continue
		}
		if side == levels.SideLong {
			if math.Abs(c.Low-price) <= tolerance && c.Close > price {
				return true
			}
		} else {
			if math.Abs(c.High-price) <= tolerance && c.Close < price {
				return true
			}
		}
	}
	return false
}

// nearestAbove returns the smallest value in vals strictly above x, ok
// reporting whether one exists.
func nearestAbove(vals []float64, x float64) (float64, bool) {
	best := math.MaxFloat64
	found := false
	for _, v := range vals {
		if v > x && v < best {
			best = v
			found = true
		}
	}
	return best, found
}

// nearestBelow returns the largest value in vals strictly below x.
func nearestBelow(vals []float64, x float64) (float64, bool) {
	best := -math.MaxFloat64
	found := false
	for _, v := range vals {
		if v < x && v > best {
			best = v
			found = true
		}
	}
	return best, found
}
