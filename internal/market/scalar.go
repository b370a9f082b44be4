package market

import (
	"math"
	"strconv"
)

// Scalar is an optional indicator value. Third-party indicator providers
// return payloads in several shapes (bare number, numeric string, object
// with a value key); everything downstream of this adapter only ever sees
// a normalized Scalar.
type Scalar struct {
	Value float64
	Valid bool
}

// ScalarOf wraps a plain float as a valid Scalar. NaN and Inf are treated
// as absent rather than propagated.
func ScalarOf(v float64) Scalar {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Scalar{}
	}
	return Scalar{Value: v, Valid: true}
}

// Or returns the value, or fallback when the scalar is absent.
func (s Scalar) Or(fallback float64) float64 {
	if !s.Valid {
		return fallback
	}
	return s.Value
}

// Keys a loose indicator payload may carry its value under.
var scalarValueKeys = []string{"value", "val", "result", "close", "price"}

// ParseScalar normalizes a loosely-typed indicator payload into a Scalar.
// Supported shapes: float64, json.Number-ish string, int, and maps with one
// of the known value keys. Anything else, including NaN, parses as absent.
func ParseScalar(raw interface{}) Scalar {
	switch v := raw.(type) {
	case nil:
		return Scalar{}
	case float64:
		return ScalarOf(v)
	case float32:
		return ScalarOf(float64(v))
	case int:
		return ScalarOf(float64(v))
	case int64:
		return ScalarOf(float64(v))
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Scalar{}
		}
		return ScalarOf(f)
	case map[string]interface{}:
		for _, key := range scalarValueKeys {
			if inner, ok := v[key]; ok {
				if s := ParseScalar(inner); s.Valid {
					return s
				}
			}
		}
		return Scalar{}
	default:
		return Scalar{}
	}
}
