package missing

import (
	"fmt"
	"strings"
)

// Output selects the representation of missing values a Handler produces.
type Output uint8

const (
	// OutputAuto follows the inputs: raw codes for raw inputs, tagged nulls
	// for tagged or mixed inputs.
	OutputAuto Output = iota
	OutputRaw
	OutputTagged
)

func (o Output) String() string {
	switch o {
	case OutputRaw:
		return "raw"
	case OutputTagged:
		return "tagged"
	default:
		return "auto"
	}
}

// ParseOutput accepts "auto", "raw"/"original" and "tagged"/"tagged_na".
func ParseOutput(s string) (Output, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "mixed":
		return OutputAuto, nil
	case "raw", "original":
		return OutputRaw, nil
	case "tagged", "tagged_na", "tagged-na":
		return OutputTagged, nil
	}
	return OutputAuto, fmt.Errorf("unknown output format %q (want auto, raw or tagged)", s)
}

// HandlerOptions configures NewHandler.
type HandlerOptions struct {
	// Pattern names the missing-value pattern governing the inputs.
	Pattern string
	// Output is the representation produced for missing results.
	Output Output
	// FormatHint overrides format detection when not FormatAuto.
	FormatHint Format
}

// Handler classifies and propagates missing values for one pattern and one
// detected format. It is immutable and safe for concurrent use.
type Handler struct {
	pattern    *Pattern
	classifier Classifier
	output     Output
}

// NewHandler builds a handler for the named pattern, detecting the input
// format from the given sequences. A nil registry means Default().
func NewHandler(reg *Registry, opts HandlerOptions, inputs ...[]Value) (*Handler, error) {
	if reg == nil {
		reg = Default()
	}
	p, err := reg.Pattern(opts.Pattern)
	if err != nil {
		return nil, err
	}
	return NewHandlerForPattern(p, opts.Output, opts.FormatHint, inputs...), nil
}

// NewHandlerForPattern builds a handler from a pattern already in hand.
func NewHandlerForPattern(p *Pattern, output Output, hint Format, inputs ...[]Value) *Handler {
	format := DetectFormat(p, hint, inputs...)
	if output == OutputAuto {
		output = OutputTagged
		if format == FormatRaw {
			output = OutputRaw
		}
	}
	return &Handler{
		pattern:    p,
		classifier: NewClassifier(p, format),
		output:     output,
	}
}

// Pattern returns the governing pattern.
func (h *Handler) Pattern() *Pattern { return h.pattern }

// Format returns the detected input format.
func (h *Handler) Format() Format { return h.classifier.Format() }

// Output returns the resolved output representation, never OutputAuto.
// Under OutputRaw, results derived from tagged inputs stay tagged.
func (h *Handler) Output() Output { return h.output }

// IsMissing reports whether v is missing under the handler's format.
func (h *Handler) IsMissing(v Value) bool {
	return h.classifier.IsMissing(v)
}

// IsTag reports whether v belongs to category c under the handler's format.
func (h *Handler) IsTag(v Value, c Category) bool {
	return h.classifier.BelongsTo(v, c)
}

// AnyMissing reports whether any of the values is missing.
func (h *Handler) AnyMissing(values ...Value) bool {
	for _, v := range values {
		if h.classifier.IsMissing(v) {
			return true
		}
	}
	return false
}

// Classify returns the highest-priority category v belongs to and whether v
// is missing. An untyped null is missing with CategoryUnknown.
func (h *Handler) Classify(v Value) (Category, bool) {
	if !h.classifier.IsMissing(v) {
		return CategoryUnknown, false
	}
	for _, r := range h.pattern.rules {
		if h.classifier.BelongsTo(v, r.Category) {
			return r.Category, true
		}
	}
	return CategoryUnknown, true
}

// Representation returns category c in the handler's output form. Categories
// the pattern does not define map to the lowest-priority category.
func (h *Handler) Representation(c Category) Value {
	r, ok := h.pattern.Rule(c)
	if !ok {
		r = h.pattern.Lowest()
	}
	return h.represent(r)
}

// Lowest returns the lowest-priority missing value in output form.
func (h *Handler) Lowest() Value {
	return h.represent(h.pattern.Lowest())
}

// LowestFor returns the lowest-priority missing value for a result computed
// from values. It is tagged whenever any of values is tagged, even under
// OutputRaw.
func (h *Handler) LowestFor(values ...Value) Value {
	for _, v := range values {
		if v.kind == KindTagged {
			return h.pattern.Lowest().Tagged()
		}
	}
	return h.Lowest()
}

func (h *Handler) represent(r Rule) Value {
	if h.output == OutputRaw {
		return r.Raw()
	}
	return r.Tagged()
}

// representFrom renders r for a result whose category came from src. A
// tagged src never yields a raw code: a marker can stand for several
// categories, so the code would be invented.
func (h *Handler) representFrom(r Rule, src Value) Value {
	if src.kind == KindTagged {
		return r.Tagged()
	}
	return h.represent(r)
}
