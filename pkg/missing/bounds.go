package missing

import (
	"fmt"
	"math"
	"slices"
)

// Bounds declares the plausible values of a variable. Min and Max are
// inclusive; a nil pointer leaves that side open. A non-empty Allowed set
// restricts categorical values to its members.
type Bounds struct {
	Min     *float64
	Max     *float64
	Allowed []float64
}

// Range returns continuous bounds [lo, hi].
func Range(lo, hi float64) Bounds {
	return Bounds{Min: &lo, Max: &hi}
}

// OneOf returns categorical bounds.
func OneOf(allowed ...float64) Bounds {
	return Bounds{Allowed: allowed}
}

// Contains reports whether f satisfies the bounds.
func (b Bounds) Contains(f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	if b.Min != nil && f < *b.Min {
		return false
	}
	if b.Max != nil && f > *b.Max {
		return false
	}
	if len(b.Allowed) > 0 && !slices.Contains(b.Allowed, f) {
		return false
	}
	return true
}

func (b Bounds) String() string {
	lo, hi := "-inf", "+inf"
	if b.Min != nil {
		lo = fmt.Sprint(*b.Min)
	}
	if b.Max != nil {
		hi = fmt.Sprint(*b.Max)
	}
	if len(b.Allowed) > 0 {
		return fmt.Sprintf("[%s, %s] in %v", lo, hi, b.Allowed)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}

// Validate replaces a non-missing value outside the bounds with the
// lowest-priority missing value. Missing values pass through untouched.
func (h *Handler) Validate(v Value, b Bounds) Value {
	if h.IsMissing(v) {
		return v
	}
	f, ok := v.Float()
	if !ok || !b.Contains(f) {
		return h.Lowest()
	}
	return v
}

// ValidateAll applies Validate to every element.
func (h *Handler) ValidateAll(values []Value, b Bounds) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = h.Validate(v, b)
	}
	return out
}
