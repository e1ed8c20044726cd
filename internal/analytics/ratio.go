package analytics

import (
	"encoding/json"
	"fmt"
	"math"
)

// RatioKind classifies a ratio whose denominator can degenerate
type RatioKind int

const (
	// RatioFinite is an ordinary finite value
	RatioFinite RatioKind = iota
	// RatioUndefined means the ratio has no meaningful value (e.g. no losing periods and no excess return)
	RatioUndefined
	// RatioInfinite means a positive numerator over a zero denominator
	RatioInfinite
)

// String returns string representation of the ratio kind
func (k RatioKind) String() string {
	switch k {
	case RatioFinite:
		return "finite"
	case RatioUndefined:
		return "undefined"
	case RatioInfinite:
		return "infinite"
	default:
		return "unknown"
	}
}

// Ratio is a ratio that reports degenerate denominators explicitly instead
// of coercing them to zero.
type Ratio struct {
	Kind  RatioKind
	Value float64
}

// Finite wraps a finite value
func Finite(v float64) Ratio {
	return Ratio{Kind: RatioFinite, Value: v}
}

// Undefined returns the undefined ratio
func Undefined() Ratio {
	return Ratio{Kind: RatioUndefined}
}

// Infinite returns the positive infinite ratio
func Infinite() Ratio {
	return Ratio{Kind: RatioInfinite}
}

// IsFinite reports whether the ratio carries a finite value
func (r Ratio) IsFinite() bool {
	return r.Kind == RatioFinite
}

// Float maps the ratio onto float64: +Inf for infinite, NaN for undefined.
func (r Ratio) Float() float64 {
	switch r.Kind {
	case RatioInfinite:
		return math.Inf(1)
	case RatioUndefined:
		return math.NaN()
	default:
		return r.Value
	}
}

// Nullable returns a pointer to the value, or nil when the ratio is not finite
func (r Ratio) Nullable() *float64 {
	if r.Kind != RatioFinite {
		return nil
	}
	v := r.Value
	return &v
}

// String formats the ratio for reports
func (r Ratio) String() string {
	switch r.Kind {
	case RatioInfinite:
		return "inf"
	case RatioUndefined:
		return "n/a"
	default:
		return fmt.Sprintf("%.4f", r.Value)
	}
}

// MarshalJSON encodes finite ratios as numbers, infinite as "inf" and undefined as null
func (r Ratio) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RatioInfinite:
		return []byte(`"inf"`), nil
	case RatioUndefined:
		return []byte("null"), nil
	default:
		return json.Marshal(r.Value)
	}
}

// UnmarshalJSON decodes the encoding produced by MarshalJSON
func (r *Ratio) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
		*r = Undefined()
		return nil
	case `"inf"`:
		*r = Infinite()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid ratio %s: %w", string(data), err)
	}
	*r = Finite(v)
	return nil
}
