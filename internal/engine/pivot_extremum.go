package engine

import (
	"math"

	"trend-level-bot/internal/confluence"
	"trend-level-bot/internal/levels"
	"trend-level-bot/internal/market"
	"trend-level-bot/internal/swing"
)

// PivotBar records a pivot bar that justified a chosen level.
type PivotBar struct {
	Timestamp int64      `json:"timestamp"`
	Price     float64    `json:"price"`
	Kind      swing.Kind `json:"kind"`
}

// PivotExtremumConfig tunes the backward pivot walk.
type PivotExtremumConfig struct {
	K                 int     // pivot confirmation window
	KOp               int     // softer window for the opposite-kind pivot
	MaxLookbackBars   int     // lookback restriction on the base series
	MinGapPercent     float64 // minimum pivot-to-signal gap, percent of signal price
	BufferTicks       int     // level offset beyond the pivot extreme
	MinToleranceTicks int     // tick floor for the fallback tolerance
}

// PivotExtremum walks backward through the most recent flat-tolerant pivot
// extremum of the base timeframe, validating each against the signal bar
// and a minimum-gap constraint.
type PivotExtremum struct {
	cfg PivotExtremumConfig
}

// NewPivotExtremum creates the engine, filling zero config fields with
// defaults (k=3, k_op=2, lookback=120, gap=0.4%, buffer=2, min ticks=5).
func NewPivotExtremum(cfg PivotExtremumConfig) *PivotExtremum {
	if cfg.K <= 0 {
		cfg.K = 3
	}
	if cfg.KOp <= 0 {
		cfg.KOp = 2
	}
	if cfg.MaxLookbackBars <= 0 {
		cfg.MaxLookbackBars = 120
	}
	if cfg.MinGapPercent <= 0 {
		cfg.MinGapPercent = 0.4
	}
	if cfg.BufferTicks <= 0 {
		cfg.BufferTicks = 2
	}
	if cfg.MinToleranceTicks <= 0 {
		cfg.MinToleranceTicks = 5
	}
	return &PivotExtremum{cfg: cfg}
}

func (e *PivotExtremum) Name() string { return "pivot_extremum" }

// Detect returns the level anchored on the first qualifying pivot, or nil.
func (e *PivotExtremum) Detect(in Input) *levels.Candidate {
	cand, _ := e.DetectWithBars(in)
	return cand
}

// DetectWithBars also returns the pivot bars that justified the level.
func (e *PivotExtremum) DetectWithBars(in Input) (*levels.Candidate, []PivotBar) {
	candles := baseCandles(in)
	if len(candles) > e.cfg.MaxLookbackBars {
		candles = candles[len(candles)-e.cfg.MaxLookbackBars:]
	}
	if len(candles) < 2*e.cfg.K+1 {
		return nil, nil
	}

	signalBar := candles[len(candles)-1]
	sigPrice := signalBar.Close
	tick := tickFor(in, sigPrice)
	minGap := sigPrice * e.cfg.MinGapPercent / 100

	pivotIdx, pivotPrice, ok := e.walkBack(candles, in.Side, signalBar, minGap)
	if !ok {
		return nil, nil
	}

	tolerance := e.toleranceFrom(candles, pivotIdx, pivotPrice, in.Side, tick)

	levelPrice := pivotPrice
	kind := swing.Low
	if in.Side == levels.SideShort {
		levelPrice = pivotPrice + float64(e.cfg.BufferTicks)*tick
		kind = swing.High
	} else {
		levelPrice = pivotPrice - float64(e.cfg.BufferTicks)*tick
	}

	res := confluence.Score(levelPrice, tolerance, confluence.Context{
		Pivots:        sessionPivotMap(in),
		VWAP:          in.Session.VWAP,
		EMA200:        in.Indicators.EMA200,
		TouchPoints:   extremesNear(candles, levelPrice, tolerance, in.Side),
		SmashedRecent: smashedNear(levelPrice, tolerance, in.SmashedLevels),
	})

	bars := []PivotBar{{Timestamp: candles[pivotIdx].OpenTime, Price: pivotPrice, Kind: kind}}

	return &levels.Candidate{
		Price:      levelPrice,
		Tolerance:  tolerance,
		TickSize:   tick,
		Confluence: res.Tags,
		Touches:    res.Touches,
		Score:      res.Score,
	}, bars
}

// walkBack scans pivot candidates from the most recent backward, skipping
// pivots that fail either validation. A pivot qualifies when it lies
// beyond the signal bar's own extreme in the trade direction and the gap
// to the signal price is at least minGap.
func (e *PivotExtremum) walkBack(candles []market.Candle, side levels.Side, signalBar market.Candle, minGap float64) (int, float64, bool) {
	k := e.cfg.K
	for i := len(candles) - 1 - k; i >= k; i-- {
		var price float64
		if side == levels.SideShort {
			if !isSwingHighAt(candles, i, k) {
				continue
			}
			price = candles[i].High
			if price <= signalBar.High {
				continue
			}
			if price-signalBar.Close < minGap {
				continue
			}
		} else {
			if !isSwingLowAt(candles, i, k) {
				continue
			}
			price = candles[i].Low
			if price >= signalBar.Low {
				continue
			}
			if signalBar.Close-price < minGap {
				continue
			}
		}
		return i, price, true
	}
	return 0, 0, false
}

// toleranceFrom derives the tolerance from the swing range to the nearest
// opposite-kind pivot in the already-scanned window, found with the softer
// k_op window. Without one it falls back to max(1% of the pivot price,
// the tick floor).
func (e *PivotExtremum) toleranceFrom(candles []market.Candle, pivotIdx int, pivotPrice float64, side levels.Side, tick float64) float64 {
	kOp := e.cfg.KOp
	for i := len(candles) - 1 - kOp; i >= pivotIdx && i >= kOp; i-- {
		if side == levels.SideShort {
			if isSwingLowAt(candles, i, kOp) {
				return math.Abs(pivotPrice-candles[i].Low) * 0.25
			}
		} else {
			if isSwingHighAt(candles, i, kOp) {
				return math.Abs(candles[i].High-pivotPrice) * 0.25
			}
		}
	}
	return math.Max(pivotPrice*0.01, float64(e.cfg.MinToleranceTicks)*tick)
}

// isSwingHighAt checks the flat-tolerant pivot condition at index i.
func isSwingHighAt(candles []market.Candle, i, k int) bool {
	if i < k || i+k >= len(candles) {
		return false
	}
	h := candles[i].High
	for j := i - k; j <= i+k; j++ {
		if j != i && candles[j].High > h {
			return false
		}
	}
	return true
}

func isSwingLowAt(candles []market.Candle, i, k int) bool {
	if i < k || i+k >= len(candles) {
		return false
	}
	l := candles[i].Low
	for j := i - k; j <= i+k; j++ {
		if j != i && candles[j].Low < l {
			return false
		}
	}
	return true
}

// extremesNear collects the bar extremes that came within tolerance of
// the level, used as touch points for scoring.
func extremesNear(candles []market.Candle, price, tolerance float64, side levels.Side) []float64 {
	var out []float64
	for _, c := range candles {
		extreme := c.Low
		if side == levels.SideShort {
			extreme = c.High
		}
		if math.Abs(extreme-price) <= tolerance {
			out = append(out, extreme)
		}
	}
	return out
}

// sessionPivotMap flattens the session pivots for proximity checks.
func sessionPivotMap(in Input) map[string]float64 {
	p := in.Session.Pivots
	if p == nil {
		return nil
	}
	out := make(map[string]float64)
	for name, v := range p.AllLevels() {
		if v > 0 {
			out[name] = v
		}
	}
	return out
}
