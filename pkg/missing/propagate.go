package missing

import (
	"fmt"
	"slices"
)

// Propagate picks the missing value representing a combination of operands.
// Categories are tried from highest to lowest priority and the first one any
// operand carries wins, wherever it sits in the argument list. Operands that
// are missing without a known category (untyped nulls) yield the
// lowest-priority category. A result whose category comes only from tagged
// operands is tagged even under OutputRaw.
//
// Callers are expected to check AnyMissing first. When no operand is missing
// the first operand is returned unchanged; with no operands the result is an
// untyped null.
func (h *Handler) Propagate(values ...Value) Value {
	if len(values) == 0 {
		return Null()
	}

	for _, r := range h.pattern.rules {
		var hit bool
		var src Value
		for _, v := range values {
			if !h.classifier.BelongsTo(v, r.Category) {
				continue
			}
			// Prefer a raw witness.
			if !hit || src.kind == KindTagged {
				src = v
			}
			hit = true
		}
		if hit {
			return h.representFrom(r, src)
		}
	}

	if h.AnyMissing(values...) {
		return h.LowestFor(values...)
	}
	return values[0]
}

// PropagateAll applies Propagate row by row over equal-length sequences and
// returns one value per row. Rows without a missing operand keep their first
// operand. Mismatched lengths yield the lowest-priority missing value for
// every row together with ErrIncompatibleLengths.
func (h *Handler) PropagateAll(seqs ...[]Value) ([]Value, error) {
	n, err := AlignedLength(seqs...)
	if err != nil {
		return h.fillLowest(n, seqs...), err
	}
	out := make([]Value, n)
	row := make([]Value, len(seqs))
	for i := 0; i < n; i++ {
		for j, seq := range seqs {
			row[j] = At(seq, i)
		}
		out[i] = h.Propagate(row...)
	}
	return out, nil
}

// fillLowest returns n copies of the lowest-priority value, tagged if any
// input is tagged.
func (h *Handler) fillLowest(n int, seqs ...[]Value) []Value {
	out := make([]Value, n)
	low := h.Lowest()
	for _, seq := range seqs {
		if slices.ContainsFunc(seq, Value.IsTagged) {
			low = h.pattern.Lowest().Tagged()
			break
		}
	}
	for i := range out {
		out[i] = low
	}
	return out
}

// AlignedLength returns the common length of the sequences. Sequences of
// length one broadcast against longer ones. Any other mismatch returns the
// longest length and an error wrapping ErrIncompatibleLengths.
func AlignedLength(seqs ...[]Value) (int, error) {
	n := 0
	for _, seq := range seqs {
		if len(seq) > n {
			n = len(seq)
		}
	}
	for i, seq := range seqs {
		if len(seq) != n && len(seq) != 1 {
			return n, &lengthError{index: i, got: len(seq), want: n}
		}
	}
	return n, nil
}

// At returns seq[i], broadcasting single-element sequences. Out-of-range
// indexes give an untyped null.
func At(seq []Value, i int) Value {
	if len(seq) == 1 {
		return seq[0]
	}
	if i < 0 || i >= len(seq) {
		return Null()
	}
	return seq[i]
}

type lengthError struct {
	index, got, want int
}

func (e *lengthError) Error() string {
	return fmt.Sprintf("%v: input %d has %d elements, want %d or 1",
		ErrIncompatibleLengths, e.index, e.got, e.want)
}

func (e *lengthError) Unwrap() error { return ErrIncompatibleLengths }
