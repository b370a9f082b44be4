package levels

// Side indicates which direction a level would be traded from.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Candidate is a scored level produced by one detection call. It is
// transient: callers consume it or drop it, nothing retains it.
type Candidate struct {
	Price      float64  `json:"price"`
	Tolerance  float64  `json:"tolerance"`
	TickSize   float64  `json:"tick_size"`
	Confluence []string `json:"confluence"`
	Touches    int      `json:"touches"`
	Score      float64  `json:"score"`
	RiskReward float64  `json:"rr,omitempty"`
}
