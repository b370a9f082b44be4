package engine

import (
	"trend-level-bot/internal/confluence"
	"trend-level-bot/internal/levels"
	"trend-level-bot/internal/market"
	"trend-level-bot/internal/swing"
)

// pivotTierBonus rewards deeper ("more fundamental") session pivot tiers.
var pivotTierBonus = map[int]float64{1: 0.03, 2: 0.07, 3: 0.12, 4: 0.12}

// ConfluenceSwing is the default detection strategy: it pools swing
// extrema across timeframes, clusters them into representative levels and
// keeps the highest-confluence cluster. When session pivots are available
// the pivot levels themselves become first-class candidates with a tier
// bonus.
type ConfluenceSwing struct {
	left    int
	right   int
	htfBars int
}

// NewConfluenceSwing creates the engine with the default 2/2 swing window
// and a 200-bar higher-timeframe scan.
func NewConfluenceSwing() *ConfluenceSwing {
	return &ConfluenceSwing{left: swing.DefaultWindow, right: swing.DefaultWindow, htfBars: 200}
}

func (e *ConfluenceSwing) Name() string { return "confluence_swing" }

// Detect returns the best-scoring level for the requested side, or nil
// when nothing clears the acceptance threshold.
func (e *ConfluenceSwing) Detect(in Input) *levels.Candidate {
	price, ok := signalPrice(in)
	if !ok {
		return nil
	}
	tick := tickFor(in, price)
	tolerance := levels.Tolerance(price, in.Indicators.ATR.Or(0), tick)

	pool := e.poolSwings(in, in.Side)
	opposite := e.poolSwings(in, otherSide(in.Side))

	ctx := confluence.Context{
		Pivots:      e.pivotLevels(in),
		VWAP:        in.Session.VWAP,
		EMA200:      in.Indicators.EMA200,
		HTFSwings:   e.htfSwings(in),
		TouchPoints: pool,
	}

	oppositeClusters := levels.Cluster(opposite, tolerance)

	if tiers := e.sessionTiers(in); len(tiers) > 0 {
		return e.detectFromPivots(in, tiers, tolerance, tick, ctx, oppositeClusters)
	}

	if len(pool) == 0 {
		return nil
	}

	var best *levels.Candidate
	for _, clustered := range levels.Cluster(pool, tolerance) {
		ctx.VolumeRejection = volumeRejectionNear(baseCandles(in), clustered, tolerance, in.Side)
		ctx.SmashedRecent = smashedNear(clustered, tolerance, in.SmashedLevels)

		res := confluence.Score(clustered, tolerance, ctx)
		if res.Score < confluence.MinAcceptScore {
			continue
		}
		// Strict comparison keeps the first cluster on equal scores.
		if best == nil || res.Score > best.Score {
			best = &levels.Candidate{
				Price:      clustered,
				Tolerance:  tolerance,
				TickSize:   tick,
				Confluence: res.Tags,
				Touches:    res.Touches,
				Score:      res.Score,
				RiskReward: riskReward(clustered, tolerance, oppositeClusters, in.Side),
			}
		}
	}
	return best
}

// sessionTiers returns the side-appropriate session pivot levels keyed by
// tier depth (1..4), omitting unset values.
func (e *ConfluenceSwing) sessionTiers(in Input) map[int]float64 {
	p := in.Session.Pivots
	if p == nil {
		return nil
	}
	var vals []float64
	if in.Side == levels.SideLong {
		vals = p.Supports()
	} else {
		vals = p.Resistances()
	}
	tiers := make(map[int]float64)
	for i, v := range vals {
		if v > 0 {
			tiers[i+1] = v
		}
	}
	return tiers
}

// detectFromPivots scores each session pivot as a candidate, applying the
// tier bonus. Iterating deepest-first with a strict comparison breaks ties
// in favor of the more fundamental tier.
func (e *ConfluenceSwing) detectFromPivots(in Input, tiers map[int]float64, tolerance, tick float64, ctx confluence.Context, oppositeClusters []float64) *levels.Candidate {
	var best *levels.Candidate
	for tier := 4; tier >= 1; tier-- {
		pivot, ok := tiers[tier]
		if !ok {
			continue
		}
		ctx.VolumeRejection = volumeRejectionNear(baseCandles(in), pivot, tolerance, in.Side)
		ctx.SmashedRecent = smashedNear(pivot, tolerance, in.SmashedLevels)

		res := confluence.Score(pivot, tolerance, ctx)
		score := res.Score
		if score > 0 { // a smashed level stays disqualified
			score += pivotTierBonus[tier]
			if score > 1.0 {
				score = 1.0
			}
		}
		if score < confluence.MinAcceptScore {
			continue
		}
		if best == nil || score > best.Score {
			best = &levels.Candidate{
				Price:      pivot,
				Tolerance:  tolerance,
				TickSize:   tick,
				Confluence: res.Tags,
				Touches:    res.Touches,
				Score:      score,
				RiskReward: riskReward(pivot, tolerance, oppositeClusters, in.Side),
			}
		}
	}
	return best
}

// poolSwings gathers swing extrema of the given side across the lower
// timeframes.
func (e *ConfluenceSwing) poolSwings(in Input, side levels.Side) []float64 {
	var pool []float64
	for _, tf := range []string{market.Timeframe5m, market.Timeframe15m, market.Timeframe30m, market.Timeframe1h} {
		candles := in.Candles[tf]
		if len(candles) == 0 {
			continue
		}
		highs, lows := swing.Detect(candles, e.left, e.right)
		if side == levels.SideLong {
			pool = append(pool, swing.Prices(lows)...)
		} else {
			pool = append(pool, swing.Prices(highs)...)
		}
	}
	return pool
}

// htfSwings scans the trailing bars of the 1h series for the higher
// timeframe confirmation set.
func (e *ConfluenceSwing) htfSwings(in Input) []float64 {
	candles := in.Candles[market.Timeframe1h]
	if len(candles) == 0 {
		return nil
	}
	if len(candles) > e.htfBars {
		candles = candles[len(candles)-e.htfBars:]
	}
	highs, lows := swing.Detect(candles, e.left, e.right)
	if in.Side == levels.SideLong {
		return swing.Prices(lows)
	}
	return swing.Prices(highs)
}

// pivotLevels assembles the proximity-check map: session pivots plus the
// previous day's high/low when supplied.
func (e *ConfluenceSwing) pivotLevels(in Input) map[string]float64 {
	out := sessionPivotMap(in)
	if out == nil {
		out = make(map[string]float64)
	}
	if in.Session.PrevDayHigh.Valid {
		out["PDH"] = in.Session.PrevDayHigh.Value
	}
	if in.Session.PrevDayLow.Valid {
		out["PDL"] = in.Session.PrevDayLow.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// riskReward relates the distance to the nearest opposite-side cluster
// (the reward target) to the tolerance band (the risk).
func riskReward(price, tolerance float64, oppositeClusters []float64, side levels.Side) float64 {
	if tolerance <= 0 {
		return 0
	}
	if side == levels.SideLong {
		if target, ok := nearestAbove(oppositeClusters, price); ok {
			return (target - price) / tolerance
		}
		return 0
	}
	if target, ok := nearestBelow(oppositeClusters, price); ok {
		return (price - target) / tolerance
	}
	return 0
}

func otherSide(s levels.Side) levels.Side {
	if s == levels.SideLong {
		return levels.SideShort
	}
	return levels.SideLong
}
