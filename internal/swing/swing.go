// Package swing finds local price extrema in candle sequences.
package swing

import "trend-level-bot/internal/market"

// Kind discriminates swing highs from swing lows.
type Kind string

const (
	High Kind = "high"
	Low  Kind = "low"
)

// Point is a confirmed local extremum: the bar index it occurred at and
// the extreme price. Points are derived per detection call and never
// persisted.
type Point struct {
	Index int
	Price float64
	Kind  Kind
}

// DefaultWindow is the default number of confirming bars on each side.
const DefaultWindow = 2

// Detect returns the swing highs and swing lows of an ordered candle
// sequence. A bar qualifies as a swing high when its high is >= every high
// in the symmetric window [i-left, i+right], ties allowed, so flat tops
// qualify; symmetric rule for lows. Bars without a full window on both
// sides are never candidates.
func Detect(candles []market.Candle, left, right int) (highs, lows []Point) {
	if left <= 0 {
		left = DefaultWindow
	}
	if right <= 0 {
		right = DefaultWindow
	}
	if len(candles) < left+right+1 {
		return nil, nil
	}

	for i := left; i < len(candles)-right; i++ {
		if isSwingHigh(candles, i, left, right) {
			highs = append(highs, Point{Index: i, Price: candles[i].High, Kind: High})
		}
		if isSwingLow(candles, i, left, right) {
			lows = append(lows, Point{Index: i, Price: candles[i].Low, Kind: Low})
		}
	}
	return highs, lows
}

func isSwingHigh(candles []market.Candle, i, left, right int) bool {
	h := candles[i].High
	for j := i - left; j <= i+right; j++ {
		if j == i {
			continue
		}
		if candles[j].High > h {
			return false
		}
	}
	return true
}

func isSwingLow(candles []market.Candle, i, left, right int) bool {
	l := candles[i].Low
	for j := i - left; j <= i+right; j++ {
		if j == i {
			continue
		}
		if candles[j].Low < l {
			return false
		}
	}
	return true
}

// Prices extracts just the price series of a point list.
func Prices(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}
