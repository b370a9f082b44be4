// Package levels turns raw swing prices into representative, tolerance-bounded
// price levels.
package levels

// TickSize infers the minimal meaningful price increment from the price
// magnitude using fixed breakpoints.
func TickSize(price float64) float64 {
	switch {
	case price >= 1000:
		return 0.1
	case price >= 100:
		return 0.01
	case price >= 10:
		return 0.001
	case price >= 1:
		return 0.0001
	default:
		return 0.00001
	}
}

// Tolerance computes the minimum significant distance for treating two
// prices as the same level: max(0.25*ATR, 0.15% of price, 5 ticks). An
// absent or invalid ATR is treated as 0, which narrows the tolerance to
// the price/tick floor.
func Tolerance(price, atr, tick float64) float64 {
	if atr < 0 {
		atr = 0
	}
	tol := atr * 0.25
	if p := price * 0.0015; p > tol {
		tol = p
	}
	if t := tick * 5; t > tol {
		tol = t
	}
	return tol
}
