// Package missing classifies and propagates survey missing-value semantics.
//
// Survey variables encode missingness either as raw sentinel codes (996, 7,
// 99.9...) or as tagged nulls (NA(a), NA(b)). A Pattern, loaded from YAML by a
// Registry, binds each semantic Category to its codes, its tagged marker and a
// priority. A Handler built for one Pattern answers "is this missing?", "is it
// this category?" and, for derived variables, "which missingness wins?".
package missing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind discriminates the states a Value can be in.
type Kind uint8

const (
	// KindNull is an untyped null: missing, reason unknown.
	KindNull Kind = iota
	// KindPresent is a real number. It may still be a raw sentinel code.
	KindPresent
	// KindTagged is a tagged null carrying a marker such as "a".
	KindTagged
)

func (k Kind) String() string {
	switch k {
	case KindPresent:
		return "present"
	case KindTagged:
		return "tagged"
	default:
		return "null"
	}
}

// Value is one datum. The zero Value is an untyped null.
type Value struct {
	kind Kind
	num  float64
	tag  string
}

// Num returns a present value. NaN and infinities become untyped null.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindPresent, num: f}
}

// Tagged returns a tagged null with the given marker.
func Tagged(marker string) Value {
	marker = strings.ToLower(strings.TrimSpace(marker))
	if marker == "" {
		return Null()
	}
	return Value{kind: KindTagged, tag: marker}
}

// Null returns an untyped null.
func Null() Value {
	return Value{}
}

// Nums converts a float slice into present values.
func Nums(fs ...float64) []Value {
	out := make([]Value, len(fs))
	for i, f := range fs {
		out[i] = Num(f)
	}
	return out
}

// Kind reports the state of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is an untyped null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsTagged reports whether v is a tagged null.
func (v Value) IsTagged() bool { return v.kind == KindTagged }

// IsPresent reports whether v holds a number.
func (v Value) IsPresent() bool { return v.kind == KindPresent }

// Float returns the number held by v and whether it is present.
func (v Value) Float() (float64, bool) {
	if v.kind != KindPresent {
		return 0, false
	}
	return v.num, true
}

// Marker returns the tag of a tagged null, or "".
func (v Value) Marker() string {
	if v.kind != KindTagged {
		return ""
	}
	return v.tag
}

// Equal reports whether two values are identical.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindPresent:
		return v.num == o.num
	case KindTagged:
		return v.tag == o.tag
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindPresent:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindTagged:
		return "NA(" + v.tag + ")"
	}
	return "NA"
}

var taggedText = regexp.MustCompile(`^(?i:na)\(\s*([A-Za-z0-9_]+)\s*\)$|^\.([A-Za-z])$`)

// ParseValue converts a text cell into a Value. Numbers become present values;
// "NA(b)" and ".b" become tagged nulls. Blank cells, NA markers and anything
// that does not parse become untyped nulls.
func ParseValue(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null()
	}
	if m := taggedText.FindStringSubmatch(s); m != nil {
		if m[1] != "" {
			return Tagged(m[1])
		}
		return Tagged(m[2])
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Null()
	}
	return Num(f)
}

// ParseValues applies ParseValue to every cell.
func ParseValues(cells []string) []Value {
	out := make([]Value, len(cells))
	for i, c := range cells {
		out[i] = ParseValue(c)
	}
	return out
}

// FormatValues renders values back to text.
func FormatValues(values []Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}
