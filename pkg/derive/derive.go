// Package derive evaluates derived variables over survey inputs that may be
// missing. For each row it either propagates the winning missingness or
// computes the formula and filters the result through plausibility bounds.
package derive

import (
	"fmt"
	"math"

	"github.com/Big-Life-Lab/cchsflow-sub003/pkg/missing"
)

// Func computes a derived value from present operands. It may return NaN or
// an infinity, which the bounds filter turns into missing data.
type Func func(xs ...float64) float64

// Evaluate computes one row: if any operand is missing the handler's
// propagated value is returned, otherwise fn's result is validated against b.
func Evaluate(h *missing.Handler, fn Func, b missing.Bounds, operands ...missing.Value) missing.Value {
	if h.AnyMissing(operands...) {
		return h.Propagate(operands...)
	}

	xs := make([]float64, len(operands))
	for i, v := range operands {
		f, ok := v.Float()
		if !ok {
			return h.LowestFor(operands...)
		}
		xs[i] = f
	}
	r := fn(xs...)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return h.Lowest()
	}
	return h.Validate(missing.Num(r), b)
}

// Apply evaluates fn element-wise over the input sequences. Single-element
// inputs broadcast. On any other length mismatch every output element is the
// lowest-priority missing value and the error wraps
// missing.ErrIncompatibleLengths; the output is still usable.
func Apply(h *missing.Handler, fn Func, b missing.Bounds, inputs ...[]missing.Value) ([]missing.Value, error) {
	n, err := missing.AlignedLength(inputs...)
	out := make([]missing.Value, n)
	if err != nil {
		var all []missing.Value
		for _, seq := range inputs {
			all = append(all, seq...)
		}
		low := h.LowestFor(all...)
		for i := range out {
			out[i] = low
		}
		return out, fmt.Errorf("derive: %w", err)
	}

	row := make([]missing.Value, len(inputs))
	for i := range out {
		for j, seq := range inputs {
			row[j] = missing.At(seq, i)
		}
		out[i] = Evaluate(h, fn, b, row...)
	}
	return out, nil
}

// Ratio returns xs[0] / xs[1], or NaN unless given exactly two operands.
func Ratio(xs ...float64) float64 {
	if len(xs) != 2 {
		return math.NaN()
	}
	return xs[0] / xs[1]
}

// Product multiplies the operands.
func Product(xs ...float64) float64 {
	p := 1.0
	for _, x := range xs {
		p *= x
	}
	return p
}

// Sum adds the operands.
func Sum(xs ...float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// Unbounded accepts every finite value.
var Unbounded = missing.Bounds{}
