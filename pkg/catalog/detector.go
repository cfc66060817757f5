package catalog

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// NoMatch is the pattern name reported when nothing applies.
const NoMatch = ""

// ErrNoPattern is returned by Resolve when a variable has no pattern.
var ErrNoPattern = errors.New("no missing-value pattern for variable")

// Source records which tier answered a detection.
type Source string

const (
	SourceCatalog   Source = "catalog"
	SourceHeuristic Source = "heuristic"
	SourceNone      Source = "none"
)

// Detection is the outcome of DetectPatternFor.
type Detection struct {
	Variable string
	Pattern  string
	Source   Source
	// Rule describes the naming rule that matched, for heuristic results.
	Rule string
}

// Matched reports whether a pattern was found.
func (d Detection) Matched() bool {
	return d.Pattern != NoMatch
}

// String returns a human-readable summary of the detection.
func (d Detection) String() string {
	switch d.Source {
	case SourceCatalog:
		return fmt.Sprintf("%s: %s (catalogue)", d.Variable, d.Pattern)
	case SourceHeuristic:
		return fmt.Sprintf("%s: %s (naming rule: %s)", d.Variable, d.Pattern, d.Rule)
	}
	return fmt.Sprintf("%s: no match", d.Variable)
}

// Detector infers the pattern governing a variable. The catalogue is
// authoritative; naming rules are consulted only for variables it lacks.
type Detector struct {
	catalog *Catalog
	rules   *RuleSet
	logger  *zap.Logger
}

// NewDetector creates a detector. A nil catalog means heuristics only; nil
// rules means DefaultRules.
func NewDetector(catalog *Catalog, rules *RuleSet, logger *zap.Logger) *Detector {
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{catalog: catalog, rules: rules, logger: logger}
}

// DetectPatternFor returns the pattern for a variable name, or a Detection
// with Pattern == NoMatch.
func (d *Detector) DetectPatternFor(variable string) Detection {
	det := Detection{Variable: variable, Pattern: NoMatch, Source: SourceNone}

	if p, ok := d.catalog.Lookup(variable); ok {
		det.Pattern = p
		det.Source = SourceCatalog
		return det
	}

	if g, m, ok := d.rules.Match(variable); ok {
		det.Pattern = g.Target
		det.Source = SourceHeuristic
		det.Rule = m.String()
		d.logger.Debug("pattern inferred from variable name",
			zap.String("variable", variable),
			zap.String("pattern", g.Target),
			zap.String("rule", det.Rule))
	}
	return det
}

// DetectAll runs DetectPatternFor over several names.
func (d *Detector) DetectAll(variables []string) []Detection {
	out := make([]Detection, len(variables))
	for i, v := range variables {
		out[i] = d.DetectPatternFor(v)
	}
	return out
}

// Resolve returns explicit when set, otherwise the detected pattern,
// otherwise fallback. With none of these it returns ErrNoPattern.
func (d *Detector) Resolve(variable, explicit, fallback string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if det := d.DetectPatternFor(variable); det.Matched() {
		return det.Pattern, nil
	}
	if fallback != "" {
		d.logger.Info("using fallback pattern",
			zap.String("variable", variable),
			zap.String("pattern", fallback))
		return fallback, nil
	}
	return NoMatch, fmt.Errorf("%w %q: supply a pattern explicitly", ErrNoPattern, variable)
}

// Explain returns a detailed account of how a variable was resolved.
func (d *Detector) Explain(variable string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Pattern detection for: %s\n", variable))
	sb.WriteString(strings.Repeat("-", 50) + "\n")

	if p, ok := d.catalog.Lookup(variable); ok {
		sb.WriteString(fmt.Sprintf("  ✓ catalogue entry: %s\n", p))
		sb.WriteString("  → catalogue is authoritative; naming rules not consulted\n")
		return sb.String()
	}
	sb.WriteString("  ✗ no catalogue entry\n")

	name := normalizeName(variable)
	for _, g := range d.rules.Groups {
		for _, m := range g.Matchers {
			if m.Match(name) {
				sb.WriteString(fmt.Sprintf("  ✓ [%d] %s: %s\n", g.Specificity, g.Target, m.String()))
				sb.WriteString(fmt.Sprintf("  → %s\n", g.Target))
				return sb.String()
			}
		}
		sb.WriteString(fmt.Sprintf("  ✗ [%d] %s\n", g.Specificity, g.Target))
	}

	sb.WriteString("  → no match; supply a pattern explicitly\n")
	return sb.String()
}
