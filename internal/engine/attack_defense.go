package engine

import (
	"trend-level-bot/internal/levels"
	"trend-level-bot/internal/market"
)

// Prediction is the qualitative outlook for a zone under pressure.
type Prediction string

const (
	PredictionHeld        Prediction = "HELD"
	PredictionBalance     Prediction = "BALANCE"
	PredictionRiskBreak   Prediction = "RISK_BREAK"
	PredictionBreakLikely Prediction = "BREAK_LIKELY"
)

// AttackDefenseResult compares the volume defending a zone with the volume
// attacking it in the breakout direction.
type AttackDefenseResult struct {
	DefenseVolume float64    `json:"defense_volume"`
	AttackVolume  float64    `json:"attack_volume"`
	VolumeRatio   float64    `json:"volume_ratio"`
	Momentum      int        `json:"momentum"` // consecutive closes in the breakout direction
	Score         float64    `json:"score"`
	Prediction    Prediction `json:"prediction"`
}

// attackWindow is how many trailing bars count as the attacking wave.
const attackWindow = 5

// AnalyzeAttackDefense weighs historical defensive volume at the zone
// against the volume of the last bars pushing through it in the breakout
// direction. The breakout direction is through the zone against its side:
// down through a long zone, up through a short one.
func AnalyzeAttackDefense(candles []market.Candle, zone Zone) AttackDefenseResult {
	res := AttackDefenseResult{Prediction: PredictionHeld}
	if len(candles) < attackWindow+1 {
		return res
	}

	// Defensive volume: mean volume of historical bars that traded the zone.
	defSum, defN := 0.0, 0
	for _, c := range candles[:len(candles)-attackWindow] {
		if c.Low <= zone.RangeHigh && c.High >= zone.RangeLow {
			defSum += c.Volume
			defN++
		}
	}
	if defN > 0 {
		res.DefenseVolume = defSum / float64(defN)
	}

	// Attacking volume: mean volume of recent bars moving through the zone
	// in the breakout direction, plus a momentum count.
	attSum, attN := 0.0, 0
	for _, c := range candles[len(candles)-attackWindow:] {
		if !movesThroughZone(c, zone) {
			continue
		}
		attSum += c.Volume
		attN++
	}
	if attN > 0 {
		res.AttackVolume = attSum / float64(attN)
	}
	res.Momentum = breakoutMomentum(candles[len(candles)-attackWindow:], zone.Side)

	if res.DefenseVolume <= 0 {
		if res.AttackVolume > 0 {
			res.VolumeRatio = 2.0 // undefended zone under attack
		}
	} else {
		res.VolumeRatio = res.AttackVolume / res.DefenseVolume
	}

	// Composite score: volume pressure adjusted by momentum.
	res.Score = res.VolumeRatio + 0.1*float64(res.Momentum)

	switch {
	case res.Score < 0.8:
		res.Prediction = PredictionHeld
	case res.Score < 1.1:
		res.Prediction = PredictionBalance
	case res.Score < 1.5:
		res.Prediction = PredictionRiskBreak
	default:
		res.Prediction = PredictionBreakLikely
	}
	return res
}

// movesThroughZone reports whether the candle traded the zone and closed
// beyond it in the breakout direction.
func movesThroughZone(c market.Candle, zone Zone) bool {
	touched := c.Low <= zone.RangeHigh && c.High >= zone.RangeLow
	if !touched {
		return false
	}
	if zone.Side == levels.SideLong {
		return c.Close < zone.RangeLow
	}
	return c.Close > zone.RangeHigh
}

// breakoutMomentum counts consecutive closes in the breakout direction at
// the end of the window.
func breakoutMomentum(candles []market.Candle, side levels.Side) int {
	count := 0
	for i := len(candles) - 1; i > 0; i-- {
		if side == levels.SideLong {
			if candles[i].Close < candles[i-1].Close {
				count++
				continue
			}
		} else {
			if candles[i].Close > candles[i-1].Close {
				count++
				continue
			}
		}
		break
	}
	return count
}
