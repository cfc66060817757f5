package missing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropagatePriority(t *testing.T) {
	p := tripleDigit(t)
	raw := NewHandlerForPattern(p, OutputAuto, FormatAuto, Nums(996, 998))
	tagged := NewHandlerForPattern(p, OutputTagged, FormatMixed)

	tests := []struct {
		name string
		h    *Handler
		in   []Value
		want Value
	}{
		{"not applicable beats missing data", raw, Nums(996, 998), Num(996)},
		{"order does not matter", raw, Nums(998, 996), Num(996)},
		{"missing data with a real value", raw, Nums(70, 999), Num(997)},
		{"decimal code resolves to its category", raw, Nums(999.6, 1.8), Num(996)},
		{"untyped null falls back to the lowest category", raw, []Value{Num(70), Null()}, Num(997)},
		{"category evidence beats untyped null", raw, []Value{Null(), Num(996)}, Num(996)},
		{"mixed: same category from both encodings", tagged, []Value{Tagged("a"), Num(996)}, Tagged("a")},
		{"mixed: tagged beats raw by priority", tagged, []Value{Num(998), Tagged("a")}, Tagged("a")},
		{"mixed: raw beats tagged by priority", tagged, []Value{Tagged("b"), Num(996)}, Tagged("a")},
		{"nothing missing returns first operand", raw, Nums(1.75, 70), Num(1.75)},
		{"no operands", raw, nil, Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.h.Propagate(tt.in...)
			assert.True(t, tt.want.Equal(got), "Propagate(%v) = %v, want %v", tt.in, got, tt.want)
		})
	}
}

// Every pair of categories with distinct priorities resolves to the more
// important one, in either argument order and in either encoding.
func TestPropagatePriorityTotality(t *testing.T) {
	reg := NewRegistry(WithEmbeddedDefaults())
	names, err := reg.PatternNames()
	require.NoError(t, err)

	for _, name := range names {
		p, err := reg.Pattern(name)
		require.NoError(t, err)
		rules := p.Rules()

		for _, format := range []Format{FormatRaw, FormatTagged} {
			out := OutputRaw
			if format == FormatTagged {
				out = OutputTagged
			}
			h := NewHandlerForPattern(p, out, format)

			for i, a := range rules {
				for _, b := range rules[i+1:] {
					require.Less(t, a.Priority, b.Priority)
					va, vb := a.Raw(), b.Raw()
					if format == FormatTagged {
						va, vb = a.Tagged(), b.Tagged()
					}
					want := h.Representation(a.Category)

					assert.True(t, want.Equal(h.Propagate(va, vb)), "%s/%s: %s vs %s", name, format, a.Category, b.Category)
					assert.True(t, want.Equal(h.Propagate(vb, va)), "%s/%s: %s vs %s reversed", name, format, a.Category, b.Category)
				}
			}
		}
	}
}

func TestPropagateAll(t *testing.T) {
	h := NewHandlerForPattern(tripleDigit(t), OutputTagged, FormatMixed)

	got, err := h.PropagateAll(
		[]Value{Num(1.75), Tagged("a"), Num(998)},
		[]Value{Num(70), Num(996), Null()},
	)
	require.NoError(t, err)
	want := []Value{Num(1.75), Tagged("a"), Tagged("b")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PropagateAll() mismatch (-want +got):\n%s", diff)
	}

	// A single-element input broadcasts.
	got, err = h.PropagateAll([]Value{Tagged("b")}, Nums(1, 996))
	require.NoError(t, err)
	want = []Value{Tagged("b"), Tagged("a")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PropagateAll() broadcast mismatch (-want +got):\n%s", diff)
	}
}

func TestPropagateAllIncompatibleLengths(t *testing.T) {
	h := NewHandlerForPattern(tripleDigit(t), OutputRaw, FormatRaw)

	got, err := h.PropagateAll(Nums(1, 2, 3), Nums(996, 997))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompatibleLengths)

	want := Nums(997, 997, 997)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("degraded output mismatch (-want +got):\n%s", diff)
	}
}

func TestAlignedLength(t *testing.T) {
	n, err := AlignedLength(Nums(1, 2, 3), Nums(4), Nums(5, 6, 7))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = AlignedLength()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = AlignedLength(Nums(1, 2), nil)
	assert.ErrorIs(t, err, ErrIncompatibleLengths)
	assert.Equal(t, 2, n)

	assert.True(t, Num(4).Equal(At(Nums(4), 10)))
	assert.True(t, At(Nums(1, 2), 5).IsNull())
}

func TestBoundsValidate(t *testing.T) {
	p := tripleDigit(t)
	raw := NewHandlerForPattern(p, OutputRaw, FormatRaw)
	tagged := NewHandlerForPattern(p, OutputTagged, FormatTagged)
	bmi := Range(15, 50)

	tests := []struct {
		name string
		h    *Handler
		in   Value
		b    Bounds
		want Value
	}{
		{"below range", raw, Num(7.5), bmi, Num(997)},
		{"below range tagged", tagged, Num(7.5), bmi, Tagged("b")},
		{"inclusive lower bound", raw, Num(15), bmi, Num(15)},
		{"inclusive upper bound", raw, Num(50), bmi, Num(50)},
		{"above range", raw, Num(50.01), bmi, Num(997)},
		{"missing passes through", raw, Num(996), bmi, Num(996)},
		{"tagged passes through", tagged, Tagged("a"), bmi, Tagged("a")},
		{"null passes through", raw, Null(), bmi, Null()},
		{"open upper bound", raw, Num(1e6), Bounds{Min: bmi.Min}, Num(1e6)},
		{"allowed category", raw, Num(2), OneOf(1, 2, 3), Num(2)},
		{"disallowed category", raw, Num(4), OneOf(1, 2, 3), Num(997)},
		{"disallowed category tagged", tagged, Num(4), OneOf(1, 2, 3), Tagged("b")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.h.Validate(tt.in, tt.b)
			assert.True(t, tt.want.Equal(got), "Validate(%v, %s) = %v, want %v", tt.in, tt.b, got, tt.want)
			again := tt.h.Validate(got, tt.b)
			assert.True(t, got.Equal(again), "Validate is not idempotent: %v then %v", got, again)
		})
	}
}

func TestValidateAll(t *testing.T) {
	h := NewHandlerForPattern(tripleDigit(t), OutputRaw, FormatRaw)
	got := h.ValidateAll(Nums(7.5, 22, 996), Range(15, 50))
	if diff := cmp.Diff(Nums(997, 22, 996), got); diff != "" {
		t.Errorf("ValidateAll() mismatch (-want +got):\n%s", diff)
	}
}
