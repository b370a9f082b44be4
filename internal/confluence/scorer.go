// Package confluence scores candidate price levels by the independent
// technical signals that agree on them.
package confluence

import (
	"math"
	"sort"

	"trend-level-bot/internal/market"
)

// Tag names for corroborating signals.
const (
	TagHTFSwing        = "htf_swing"
	TagTouches         = "touches"
	TagPivot           = "pivot"
	TagEMA200Near      = "ema200_near"
	TagTrendOK         = "trend_ok"
	TagVolumeRejection = "volume_rejection"
	TagVWAP            = "vwap"
	TagRound           = "round"
)

// tagWeights are the fixed per-tag contributions to the score.
var tagWeights = map[string]float64{
	TagHTFSwing:        0.18,
	TagTouches:         0.18,
	TagPivot:           0.12,
	TagEMA200Near:      0.12,
	TagTrendOK:         0.12,
	TagVolumeRejection: 0.12,
	TagVWAP:            0.10,
	TagRound:           0.06,
}

// MinAcceptScore is the threshold a candidate must reach to be usable.
const MinAcceptScore = 0.60

// Context carries the corroborating signals a candidate level is checked
// against. Absent scalars simply contribute no tag.
type Context struct {
	Pivots          map[string]float64 // session pivot levels keyed by name, may be nil
	VWAP            market.Scalar
	EMA200          market.Scalar
	HTFSwings       []float64 // higher-timeframe swing prices
	TouchPoints     []float64 // raw pooled points for the candidate's side
	VolumeRejection bool
	SmashedRecent   bool // level was invalidated recently; disqualifies it
}

// Result is the outcome of scoring one candidate price.
type Result struct {
	Score   float64
	Tags    []string
	Touches int
}

// Score evaluates a candidate price against the context. Each signal
// within tolerance of the price attaches its tag; the score is the capped
// sum of tag weights. A recently smashed level scores 0 regardless of its
// tags but keeps them listed.
func Score(price, tolerance float64, ctx Context) Result {
	var tags []string

	for _, pivot := range ctx.Pivots {
		if math.Abs(price-pivot) <= tolerance {
			tags = append(tags, TagPivot)
			break
		}
	}

	if ctx.EMA200.Valid && math.Abs(price-ctx.EMA200.Value) <= tolerance {
		tags = append(tags, TagEMA200Near)
	}

	if ctx.VWAP.Valid && math.Abs(price-ctx.VWAP.Value) <= tolerance {
		tags = append(tags, TagVWAP)
	}

	if round := NearestRound(price); round > 0 && math.Abs(price-round) <= tolerance {
		tags = append(tags, TagRound)
	}

	for _, s := range ctx.HTFSwings {
		if math.Abs(price-s) <= tolerance {
			tags = append(tags, TagHTFSwing)
			break
		}
	}

	touches := 0
	for _, p := range ctx.TouchPoints {
		if math.Abs(price-p) <= tolerance {
			touches++
		}
	}
	if touches >= 2 {
		tags = append(tags, TagTouches)
	}

	if ctx.VolumeRejection {
		tags = append(tags, TagVolumeRejection)
	}

	// Placeholder signal asserted by the caller's side selection.
	tags = append(tags, TagTrendOK)

	score := 0.0
	for _, tag := range tags {
		score += tagWeights[tag]
	}
	if score > 1.0 {
		score = 1.0
	}
	if ctx.SmashedRecent {
		score = 0
	}

	sort.Strings(tags)
	return Result{Score: score, Tags: tags, Touches: touches}
}

// NearestRound returns the psychologically round price nearest to the
// given price, one order of magnitude below the price's own.
func NearestRound(price float64) float64 {
	if price <= 0 {
		return 0
	}
	step := math.Pow(10, math.Floor(math.Log10(price))) / 10
	return math.Round(price/step) * step
}
