package missing

import (
	"fmt"
	"slices"
	"sort"
)

// Rule binds one Category to its encodings inside a Pattern.
type Rule struct {
	Category Category
	// Priority orders categories; lower wins when inputs are combined.
	Priority int
	// Codes are the raw sentinel codes, original and decimal variants.
	Codes []float64
	// Markers are the tagged-null markers. The first is the canonical one.
	Markers []string
}

// HasCode reports whether f is one of the rule's sentinel codes.
func (r Rule) HasCode(f float64) bool {
	return slices.Contains(r.Codes, f)
}

// HasMarker reports whether marker is one of the rule's tagged markers.
func (r Rule) HasMarker(marker string) bool {
	return slices.Contains(r.Markers, marker)
}

// Raw is the rule's raw-code representation: its first code, or an untyped
// null when the rule declares no codes.
func (r Rule) Raw() Value {
	if len(r.Codes) == 0 {
		return Null()
	}
	return Num(r.Codes[0])
}

// Tagged is the rule's tagged-null representation.
func (r Rule) Tagged() Value {
	if len(r.Markers) == 0 {
		return Null()
	}
	return Tagged(r.Markers[0])
}

// Pattern is a named missing-value scheme. It is immutable once built.
type Pattern struct {
	Name        string
	Description string

	rules []Rule // ascending priority
	codes map[float64]int
}

// NewPattern validates and compiles a pattern. Rules may be given in any
// order; they are stored by ascending priority.
func NewPattern(name string, rules ...Rule) (*Pattern, error) {
	p := &Pattern{Name: name, rules: make([]Rule, len(rules))}
	for i, r := range rules {
		r.Codes = slices.Clone(r.Codes)
		r.Markers = normalizeMarkers(r.Markers)
		p.rules[i] = r
	}
	sort.SliceStable(p.rules, func(i, j int) bool {
		return p.rules[i].Priority < p.rules[j].Priority
	})

	if errs := ValidatePattern(p); len(errs) > 0 {
		return nil, fmt.Errorf("pattern %q: %w", name, errs)
	}
	p.compile()
	return p, nil
}

func (p *Pattern) compile() {
	p.codes = make(map[float64]int)
	for i, r := range p.rules {
		for _, c := range r.Codes {
			p.codes[c] = i
		}
	}
}

func normalizeMarkers(markers []string) []string {
	out := make([]string, 0, len(markers))
	for _, m := range markers {
		if v := Tagged(m); v.IsTagged() {
			out = append(out, v.Marker())
		}
	}
	return out
}

// Rules returns the rules ordered from highest to lowest priority.
func (p *Pattern) Rules() []Rule {
	return slices.Clone(p.rules)
}

// Rule returns the rule for category c.
func (p *Pattern) Rule(c Category) (Rule, bool) {
	for _, r := range p.rules {
		if r.Category == c {
			return r, true
		}
	}
	return Rule{}, false
}

// Lowest returns the lowest-priority rule, the catch-all for unknown reasons.
func (p *Pattern) Lowest() Rule {
	return p.rules[len(p.rules)-1]
}

// IsSentinel reports whether f is a sentinel code of any rule.
func (p *Pattern) IsSentinel(f float64) bool {
	_, ok := p.codes[f]
	return ok
}

// CategoryOfCode returns the category a sentinel code belongs to.
func (p *Pattern) CategoryOfCode(f float64) (Category, bool) {
	i, ok := p.codes[f]
	if !ok {
		return CategoryUnknown, false
	}
	return p.rules[i].Category, true
}

// CategoryOfMarker returns the highest-priority category using marker.
func (p *Pattern) CategoryOfMarker(marker string) (Category, bool) {
	for _, r := range p.rules {
		if r.HasMarker(marker) {
			return r.Category, true
		}
	}
	return CategoryUnknown, false
}

// Categories lists the pattern's categories by ascending priority.
func (p *Pattern) Categories() []Category {
	out := make([]Category, len(p.rules))
	for i, r := range p.rules {
		out[i] = r.Category
	}
	return out
}
