package missing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// categoryDoc is one entry of a priority_hierarchy block.
type categoryDoc struct {
	Priority      int        `yaml:"priority" validate:"required,gte=1"`
	OriginalCodes floatList  `yaml:"original_codes"`
	DecimalCodes  floatList  `yaml:"decimal_codes"`
	TaggedNA      stringList `yaml:"tagged_na" validate:"required,min=1,dive,required"`
}

// patternDoc is the YAML shape of one pattern.
type patternDoc struct {
	Description       string                 `yaml:"description"`
	PriorityHierarchy map[string]categoryDoc `yaml:"priority_hierarchy" validate:"required,min=1,dive"`
}

// definitionsDoc is the newer nested layout.
type definitionsDoc struct {
	Patterns map[string]patternDoc `yaml:"patterns"`
}

// stringList accepts either a scalar or a sequence.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = stringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("line %d: expected a marker or a list of markers", node.Line)
}

// floatList accepts either a scalar or a sequence of numbers.
type floatList []float64

func (l *floatList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*l = floatList{f}
		return nil
	case yaml.SequenceNode:
		var items []float64
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("line %d: expected a code or a list of codes", node.Line)
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// ParseConfig decodes a pattern configuration document. The nested
// pattern_definitions.patterns layout is preferred; otherwise every top-level
// mapping that carries a priority_hierarchy is read as a pattern.
func ParseConfig(data []byte) (map[string]*Pattern, error) {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}

	docs, err := collectPatternDocs(top)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no patterns defined", ErrConfigParse)
	}

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	patterns := make(map[string]*Pattern, len(docs))
	for _, name := range names {
		p, err := buildPattern(name, docs[name])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigParse, err)
		}
		patterns[name] = p
	}
	return patterns, nil
}

func collectPatternDocs(top map[string]yaml.Node) (map[string]patternDoc, error) {
	if node, ok := top["pattern_definitions"]; ok {
		var defs definitionsDoc
		if err := node.Decode(&defs); err != nil {
			return nil, fmt.Errorf("pattern_definitions: %w", err)
		}
		if len(defs.Patterns) > 0 {
			return defs.Patterns, nil
		}
	}

	docs := make(map[string]patternDoc)
	for key, node := range top {
		if node.Kind != yaml.MappingNode || !hasKey(&node, "priority_hierarchy") {
			continue
		}
		var doc patternDoc
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		docs[key] = doc
	}
	return docs, nil
}

func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

func buildPattern(name string, doc patternDoc) (*Pattern, error) {
	if err := configValidator.Struct(doc); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", name, err)
	}

	rules := make([]Rule, 0, len(doc.PriorityHierarchy))
	for catName, cd := range doc.PriorityHierarchy {
		cat, err := ParseCategory(catName)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", name, err)
		}
		codes := make([]float64, 0, len(cd.OriginalCodes)+len(cd.DecimalCodes))
		codes = append(codes, cd.OriginalCodes...)
		codes = append(codes, cd.DecimalCodes...)

		markers := make([]string, len(cd.TaggedNA))
		for i, m := range cd.TaggedNA {
			markers[i] = cleanMarker(m)
		}

		rules = append(rules, Rule{
			Category: cat,
			Priority: cd.Priority,
			Codes:    codes,
			Markers:  markers,
		})
	}

	p, err := NewPattern(name, rules...)
	if err != nil {
		return nil, err
	}
	p.Description = doc.Description
	return p, nil
}

// cleanMarker accepts "a", "NA(a)" and "NA::a".
func cleanMarker(m string) string {
	m = strings.TrimSpace(m)
	if v := ParseValue(m); v.IsTagged() {
		return v.Marker()
	}
	if i := strings.Index(m, "::"); i >= 0 {
		m = m[i+2:]
	}
	return strings.ToLower(m)
}
