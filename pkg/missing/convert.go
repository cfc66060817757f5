package missing

// ToTagged converts raw sentinel codes to tagged nulls. Tagged nulls, untyped
// nulls and ordinary numbers are returned unchanged, so converting an already
// tagged sequence is a no-op. There is no reverse conversion: several codes
// can share one marker.
func (p *Pattern) ToTagged(values []Value) []Value {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = v
		if v.kind != KindPresent {
			continue
		}
		if idx, ok := p.codes[v.num]; ok {
			out[i] = p.rules[idx].Tagged()
		}
	}
	return out
}

// ToTagged converts a raw sequence to tagged form using the named pattern. A
// nil registry means Default().
func ToTagged(reg *Registry, pattern string, values []Value) ([]Value, error) {
	if reg == nil {
		reg = Default()
	}
	p, err := reg.Pattern(pattern)
	if err != nil {
		return nil, err
	}
	return p.ToTagged(values), nil
}
