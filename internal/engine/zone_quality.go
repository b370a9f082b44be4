package engine

import (
	"math"

	"trend-level-bot/internal/indicators"
	"trend-level-bot/internal/levels"
	"trend-level-bot/internal/market"
	"trend-level-bot/internal/swing"
)

// Quality grades a zone by how many independent validators confirmed it.
type Quality string

const (
	QualityGold   Quality = "gold"
	QualitySilver Quality = "silver"
	QualityBronze Quality = "bronze"
)

// qualityScores maps zone quality to the candidate score.
var qualityScores = map[Quality]float64{
	QualityGold:   0.90,
	QualitySilver: 0.75,
	QualityBronze: 0.60,
}

// Zone is an ATR-scaled price band around a swing extremum.
type Zone struct {
	Price        float64     `json:"price"`
	RangeLow     float64     `json:"range_low"`
	RangeHigh    float64     `json:"range_high"`
	Side         levels.Side `json:"side"`
	ATR          float64     `json:"atr"`
	PositionalOK bool        `json:"positional_ok"`
	Quality      Quality     `json:"quality"`
	Reason       string      `json:"reason"`
}

// ZoneQualityConfig tunes the zone engine.
type ZoneQualityConfig struct {
	ATRPeriod           int     // default 14
	PositionalThreshold float64 // body-beyond-boundary fraction, default 0.70
	VolumeLookback      int     // trailing mean volume window, default 200
}

// ZoneQuality builds half-ATR zones around swing extrema and grades each
// by volume-profile and RSI-divergence validators.
type ZoneQuality struct {
	cfg ZoneQualityConfig
}

// minZoneCandles is the minimum history the engine needs.
const minZoneCandles = 30

// NewZoneQuality creates the engine with defaulted configuration.
func NewZoneQuality(cfg ZoneQualityConfig) *ZoneQuality {
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}
	if cfg.PositionalThreshold <= 0 {
		cfg.PositionalThreshold = 0.70
	}
	if cfg.VolumeLookback <= 0 {
		cfg.VolumeLookback = 200
	}
	return &ZoneQuality{cfg: cfg}
}

func (e *ZoneQuality) Name() string { return "zone_quality" }

// Detect grades every zone and returns the best one as a level candidate,
// or nil when no zone passes the positional filter.
func (e *ZoneQuality) Detect(in Input) *levels.Candidate {
	zone := e.BestZone(in)
	if zone == nil {
		return nil
	}
	tick := tickFor(in, zone.Price)
	// The half-width of a half-ATR zone is 0.25*ATR, which the standard
	// tolerance floors at 0.15% of price and 5 ticks.
	tolerance := math.Max((zone.RangeHigh-zone.RangeLow)/2, levels.Tolerance(zone.Price, zone.ATR, tick))
	return &levels.Candidate{
		Price:      zone.Price,
		Tolerance:  tolerance,
		TickSize:   tick,
		Confluence: []string{"zone_" + string(zone.Quality), zone.Reason},
		Score:      qualityScores[zone.Quality],
	}
}

// BestZone returns the highest-quality zone nearest to the last close
// among zones that passed the positional filter, or nil.
func (e *ZoneQuality) BestZone(in Input) *Zone {
	zones := e.Zones(in)
	if len(zones) == 0 {
		return nil
	}
	candles := baseCandles(in)
	lastClose := candles[len(candles)-1].Close

	var best *Zone
	bestDist := math.MaxFloat64
	for i := range zones {
		z := &zones[i]
		if !z.PositionalOK {
			continue
		}
		dist := math.Abs(z.Price - lastClose)
		if best == nil || qualityRank(z.Quality) > qualityRank(best.Quality) ||
			(z.Quality == best.Quality && dist < bestDist) {
			best = z
			bestDist = dist
		}
	}
	return best
}

// Zones builds and grades every candidate zone for the requested side.
// Requires at least 30 candles of base history.
func (e *ZoneQuality) Zones(in Input) []Zone {
	candles := baseCandles(in)
	if len(candles) < minZoneCandles {
		return nil
	}

	atr := indicators.ATR(candles, e.cfg.ATRPeriod)
	if atr <= 0 {
		return nil
	}
	half := atr / 2

	highs, lows := swing.Detect(candles, swing.DefaultWindow, swing.DefaultWindow)
	points := lows
	if in.Side == levels.SideShort {
		points = highs
	}

	rsi := indicators.RSISeries(market.Closes(candles), 14)
	trailingVol := indicators.MeanVolume(candles, e.cfg.VolumeLookback)
	last := candles[len(candles)-1]

	zones := make([]Zone, 0, len(points))
	for _, p := range points {
		z := Zone{
			Price:     p.Price,
			RangeLow:  p.Price - half/2,
			RangeHigh: p.Price + half/2,
			Side:      in.Side,
			ATR:       atr,
		}
		z.PositionalOK = e.positionalOK(last, z, in.Side)

		volOK := e.volumeProfileConfirms(candles, z, trailingVol)
		divOK := rsiDivergenceConfirms(candles, rsi, in.Side)
		switch {
		case volOK && divOK:
			z.Quality = QualityGold
			z.Reason = "volume_profile+rsi_divergence"
		case volOK:
			z.Quality = QualitySilver
			z.Reason = "volume_profile"
		case divOK:
			z.Quality = QualitySilver
			z.Reason = "rsi_divergence"
		default:
			z.Quality = QualityBronze
			z.Reason = "unconfirmed"
		}
		zones = append(zones, z)
	}
	return zones
}

// positionalOK checks whether the most recent candle's body crossed at
// least the configured fraction of its own range beyond the zone boundary
// in the trade direction.
func (e *ZoneQuality) positionalOK(c market.Candle, z Zone, side levels.Side) bool {
	rng := c.Range()
	if rng <= 0 {
		return false
	}
	if side == levels.SideLong {
		if c.Close <= z.RangeHigh {
			return false
		}
		return (c.Close-z.RangeHigh)/rng >= e.cfg.PositionalThreshold
	}
	if c.Close >= z.RangeLow {
		return false
	}
	return (z.RangeLow-c.Close)/rng >= e.cfg.PositionalThreshold
}

// volumeProfileConfirms checks whether the mean traded volume of bars
// inside the zone exceeds the trailing mean.
func (e *ZoneQuality) volumeProfileConfirms(candles []market.Candle, z Zone, trailingVol float64) bool {
	if trailingVol <= 0 {
		return false
	}
	sum := 0.0
	n := 0
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		if typical >= z.RangeLow && typical <= z.RangeHigh {
			sum += c.Volume
			n++
		}
	}
	if n == 0 {
		return false
	}
	return sum/float64(n) > trailingVol
}

// rsiDivergenceConfirms compares the last 5 closes against the last 5
// Wilder RSI values for a directional divergence: price pushing one way
// while momentum pulls the other.
func rsiDivergenceConfirms(candles []market.Candle, rsi []float64, side levels.Side) bool {
	const window = 5
	if len(candles) < window || len(rsi) < window {
		return false
	}
	first := candles[len(candles)-window]
	last := candles[len(candles)-1]
	rsiFirst := rsi[len(rsi)-window]
	rsiLast := rsi[len(rsi)-1]
	if rsiFirst == 0 || rsiLast == 0 {
		return false
	}
	if side == levels.SideLong {
		return last.Close < first.Close && rsiLast > rsiFirst
	}
	return last.Close > first.Close && rsiLast < rsiFirst
}

func qualityRank(q Quality) int {
	switch q {
	case QualityGold:
		return 3
	case QualitySilver:
		return 2
	default:
		return 1
	}
}
