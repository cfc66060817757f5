package missing

// Classifier answers whether a value is missing and which category it
// belongs to, under one pattern and one format.
type Classifier interface {
	Format() Format
	// IsMissing reports whether v is missing at all.
	IsMissing(v Value) bool
	// BelongsTo reports whether v carries category c. Untyped nulls never
	// belong to a specific category.
	BelongsTo(v Value, c Category) bool
}

// NewClassifier selects the classifier strategy for format f. FormatAuto is
// treated as FormatRaw.
func NewClassifier(p *Pattern, f Format) Classifier {
	switch f {
	case FormatTagged:
		return taggedClassifier{p: p}
	case FormatMixed:
		return mixedClassifier{raw: rawClassifier{p: p}, tagged: taggedClassifier{p: p}}
	default:
		return rawClassifier{p: p}
	}
}

// rawClassifier matches numeric sentinel codes.
type rawClassifier struct{ p *Pattern }

func (rawClassifier) Format() Format { return FormatRaw }

func (c rawClassifier) IsMissing(v Value) bool {
	switch v.kind {
	case KindNull:
		return true
	case KindPresent:
		return c.p.IsSentinel(v.num)
	}
	return false
}

func (c rawClassifier) BelongsTo(v Value, cat Category) bool {
	if v.kind != KindPresent {
		return false
	}
	r, ok := c.p.Rule(cat)
	return ok && r.HasCode(v.num)
}

// taggedClassifier matches tagged-null markers. Numbers are never missing.
type taggedClassifier struct{ p *Pattern }

func (taggedClassifier) Format() Format { return FormatTagged }

func (taggedClassifier) IsMissing(v Value) bool {
	return v.kind == KindNull || v.kind == KindTagged
}

func (c taggedClassifier) BelongsTo(v Value, cat Category) bool {
	if v.kind != KindTagged {
		return false
	}
	r, ok := c.p.Rule(cat)
	return ok && r.HasMarker(v.tag)
}

// mixedClassifier accepts both encodings.
type mixedClassifier struct {
	raw    rawClassifier
	tagged taggedClassifier
}

func (mixedClassifier) Format() Format { return FormatMixed }

func (c mixedClassifier) IsMissing(v Value) bool {
	return c.raw.IsMissing(v) || c.tagged.IsMissing(v)
}

func (c mixedClassifier) BelongsTo(v Value, cat Category) bool {
	return c.raw.BelongsTo(v, cat) || c.tagged.BelongsTo(v, cat)
}
