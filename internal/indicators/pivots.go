package indicators

// SessionPivots holds the classic floor-trader pivot levels derived from
// the previous session's high/low/close.
type SessionPivots struct {
	PP float64 `json:"pp"`
	R1 float64 `json:"r1"`
	R2 float64 `json:"r2"`
	R3 float64 `json:"r3"`
	R4 float64 `json:"r4"`
	S1 float64 `json:"s1"`
	S2 float64 `json:"s2"`
	S3 float64 `json:"s3"`
	S4 float64 `json:"s4"`
}

// ClassicPivots calculates standard pivot points from a prior session.
func ClassicPivots(high, low, close float64) SessionPivots {
	pp := (high + low + close) / 3
	rng := high - low

	r1 := 2*pp - low
	s1 := 2*pp - high
	r2 := pp + rng
	s2 := pp - rng
	r3 := high + 2*(pp-low)
	s3 := low - 2*(high-pp)
	r4 := r3 + rng
	s4 := s3 - rng

	return SessionPivots{
		PP: pp,
		R1: r1, R2: r2, R3: r3, R4: r4,
		S1: s1, S2: s2, S3: s3, S4: s4,
	}
}

// Supports returns the support levels ordered S1..S4.
func (p SessionPivots) Supports() []float64 {
	return []float64{p.S1, p.S2, p.S3, p.S4}
}

// Resistances returns the resistance levels ordered R1..R4.
func (p SessionPivots) Resistances() []float64 {
	return []float64{p.R1, p.R2, p.R3, p.R4}
}

// AllLevels returns every pivot level keyed by name.
func (p SessionPivots) AllLevels() map[string]float64 {
	return map[string]float64{
		"PP": p.PP,
		"R1": p.R1, "R2": p.R2, "R3": p.R3, "R4": p.R4,
		"S1": p.S1, "S2": p.S2, "S3": p.S3, "S4": p.S4,
	}
}
