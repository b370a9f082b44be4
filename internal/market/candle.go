package market

// Timeframe identifiers used throughout the engines and the level store.
const (
	Timeframe5m  = "5m"
	Timeframe15m = "15m"
	Timeframe30m = "30m"
	Timeframe1h  = "1h"
	Timeframe4h  = "4h"
	Timeframe12h = "12h"
)

// Candle represents a single OHLCV bar. Candle sequences handed to the
// engines must be sorted ascending by OpenTime and deduplicated; candles
// are never mutated after retrieval.
type Candle struct {
	OpenTime int64   `json:"openTime"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// Range returns the full high-low range of the candle.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Highs extracts the high series from a candle slice.
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low series from a candle slice.
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// Closes extracts the close series from a candle slice.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
