package indicators

import (
	"math"
	"testing"

	"trend-level-bot/internal/market"
)

func flatCandles(closes []float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func TestSMA(t *testing.T) {
	candles := flatCandles([]float64{1, 2, 3, 4, 5})

	if got := SMA(candles, 5); got != 3 {
		t.Errorf("SMA(5) = %v, want 3", got)
	}
	if got := SMA(candles, 2); got != 4.5 {
		t.Errorf("SMA(2) = %v, want 4.5 over the trailing window", got)
	}
	if got := SMA(candles, 6); got != 0 {
		t.Errorf("SMA with short input = %v, want 0", got)
	}
}

func TestEMAConvergesToConstant(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 50
	}
	if got := EMA(flatCandles(closes), 20); math.Abs(got-50) > 1e-9 {
		t.Errorf("EMA of constant series = %v, want 50", got)
	}
}

func TestEMAFollowsTrend(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	ema := EMA(flatCandles(closes), 20)
	sma := SMA(flatCandles(closes), 20)

	// In a steady uptrend the EMA sits above the equally weighted average.
	if ema <= sma {
		t.Errorf("uptrend EMA %v not above SMA %v", ema, sma)
	}
	last := closes[len(closes)-1]
	if ema >= last {
		t.Errorf("EMA %v not below last close %v", ema, last)
	}
}

func TestTrueRangeGap(t *testing.T) {
	prev := market.Candle{Close: 100}
	cur := market.Candle{High: 112, Low: 108}

	// Gap up: distance from prior close dominates the bar's own range.
	if got := TrueRange(cur, prev); got != 12 {
		t.Errorf("TrueRange = %v, want 12", got)
	}
}

func TestATR(t *testing.T) {
	candles := make([]market.Candle, 15)
	for i := range candles {
		price := float64(100)
		candles[i] = market.Candle{Open: price, High: price + 2, Low: price - 2, Close: price}
	}

	// Identical bars with no gaps: ATR equals the constant bar range.
	if got := ATR(candles, 14); math.Abs(got-4) > 1e-9 {
		t.Errorf("ATR = %v, want 4", got)
	}
	if got := ATR(candles[:10], 14); got != 0 {
		t.Errorf("ATR with short input = %v, want 0", got)
	}
}

func TestRSISeries(t *testing.T) {
	up := make([]float64, 30)
	for i := range up {
		up[i] = float64(100 + i)
	}
	rsi := RSISeries(up, 14)

	if len(rsi) != len(up) {
		t.Fatalf("series length = %d, want %d", len(rsi), len(up))
	}
	for i := 0; i < 14; i++ {
		if rsi[i] != 0 {
			t.Errorf("rsi[%d] = %v before first computable point, want 0", i, rsi[i])
		}
	}
	// Monotonic gains: no losses, RSI pegs at 100.
	if rsi[len(rsi)-1] != 100 {
		t.Errorf("all-gains RSI = %v, want 100", rsi[len(rsi)-1])
	}

	down := make([]float64, 30)
	for i := range down {
		down[i] = float64(100 - i)
	}
	rsiDown := RSISeries(down, 14)
	if rsiDown[len(rsiDown)-1] != 0 {
		t.Errorf("all-losses RSI = %v, want 0", rsiDown[len(rsiDown)-1])
	}
}

func TestRSISeriesShortInput(t *testing.T) {
	rsi := RSISeries([]float64{1, 2, 3}, 14)
	for i, v := range rsi {
		if v != 0 {
			t.Errorf("rsi[%d] = %v for short input, want 0", i, v)
		}
	}
}

func TestVWAP(t *testing.T) {
	candles := []market.Candle{
		{High: 102, Low: 98, Close: 100, Volume: 10}, // typical 100
		{High: 112, Low: 108, Close: 110, Volume: 30}, // typical 110
	}

	want := (100*10.0 + 110*30.0) / 40.0
	if got := VWAP(candles); math.Abs(got-want) > 1e-9 {
		t.Errorf("VWAP = %v, want %v", got, want)
	}
	if got := VWAP(nil); got != 0 {
		t.Errorf("VWAP of empty input = %v, want 0", got)
	}
}

func TestMeanVolume(t *testing.T) {
	candles := []market.Candle{{Volume: 10}, {Volume: 20}, {Volume: 30}}

	if got := MeanVolume(candles, 2); got != 25 {
		t.Errorf("MeanVolume(2) = %v, want 25", got)
	}
	// Shorter input than period falls back to the full slice.
	if got := MeanVolume(candles, 10); got != 20 {
		t.Errorf("MeanVolume over short input = %v, want 20", got)
	}
}

func TestClassicPivots(t *testing.T) {
	p := ClassicPivots(110, 90, 100)

	if p.PP != 100 {
		t.Errorf("PP = %v, want 100", p.PP)
	}
	if p.R1 != 110 || p.S1 != 90 {
		t.Errorf("R1/S1 = %v/%v, want 110/90", p.R1, p.S1)
	}
	if p.R2 != 120 || p.S2 != 80 {
		t.Errorf("R2/S2 = %v/%v, want 120/80", p.R2, p.S2)
	}
	if p.R3 != 130 || p.S3 != 70 {
		t.Errorf("R3/S3 = %v/%v, want 130/70", p.R3, p.S3)
	}
	if p.R4 != 150 || p.S4 != 50 {
		t.Errorf("R4/S4 = %v/%v, want 150/50", p.R4, p.S4)
	}

	sup := p.Supports()
	if len(sup) != 4 || sup[0] != p.S1 || sup[3] != p.S4 {
		t.Errorf("Supports() = %v, want ordered S1..S4", sup)
	}
	if len(p.AllLevels()) != 9 {
		t.Errorf("AllLevels() has %d entries, want 9", len(p.AllLevels()))
	}
}
