package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/naming_rules.yaml
var defaultRulesYAML []byte

// Matcher tests a variable name. Exactly one field is set.
type Matcher struct {
	Prefix   string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Suffix   string `yaml:"suffix,omitempty" json:"suffix,omitempty"`
	Contains string `yaml:"contains,omitempty" json:"contains,omitempty"`
	Regex    string `yaml:"regex,omitempty" json:"regex,omitempty"`

	compiled *regexp.Regexp
}

// Kind names the kind of test the matcher performs.
func (m *Matcher) Kind() string {
	switch {
	case m.Prefix != "":
		return "prefix"
	case m.Suffix != "":
		return "suffix"
	case m.Contains != "":
		return "contains"
	case m.Regex != "":
		return "regex"
	}
	return ""
}

func (m *Matcher) String() string {
	switch m.Kind() {
	case "prefix":
		return "prefix " + m.Prefix
	case "suffix":
		return "suffix " + m.Suffix
	case "contains":
		return "contains " + m.Contains
	case "regex":
		return "regex " + m.Regex
	}
	return "empty matcher"
}

func (m *Matcher) compile() error {
	set := 0
	for _, s := range []string{m.Prefix, m.Suffix, m.Contains, m.Regex} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("matcher must set exactly one of prefix, suffix, contains, regex (got %d)", set)
	}
	if m.Regex != "" {
		re, err := regexp.Compile("(?i)" + m.Regex)
		if err != nil {
			return fmt.Errorf("compiling regex %q: %w", m.Regex, err)
		}
		m.compiled = re
	}
	return nil
}

// Match reports whether the (already lower-cased) name fits the matcher.
func (m *Matcher) Match(name string) bool {
	switch {
	case m.Prefix != "":
		return strings.HasPrefix(name, strings.ToLower(m.Prefix))
	case m.Suffix != "":
		return strings.HasSuffix(name, strings.ToLower(m.Suffix))
	case m.Contains != "":
		return strings.Contains(name, strings.ToLower(m.Contains))
	case m.compiled != nil:
		return m.compiled.MatchString(name)
	}
	return false
}

// RuleGroup is an ordered list of matchers pointing at one pattern.
type RuleGroup struct {
	Target      string    `yaml:"target" json:"target"`
	Specificity int       `yaml:"specificity" json:"specificity"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Matchers    []Matcher `yaml:"matchers" json:"matchers"`
}

// RuleSet is the naming-convention fallback. Groups are held from most to
// least specific; ties keep declaration order.
type RuleSet struct {
	Groups []RuleGroup `yaml:"groups" json:"groups"`
}

// ParseRules decodes and compiles a rule set.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := rs.Compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// LoadRules reads a rule set from a YAML file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	rs, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// DefaultRules returns the built-in naming conventions.
func DefaultRules() *RuleSet {
	rs, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic("catalog: built-in naming rules are invalid: " + err.Error())
	}
	return rs
}

// Compile validates the groups, compiles their regexes and orders them by
// descending specificity.
func (rs *RuleSet) Compile() error {
	if len(rs.Groups) == 0 {
		return fmt.Errorf("at least one rule group is required")
	}
	for i := range rs.Groups {
		g := &rs.Groups[i]
		if g.Target == "" {
			return fmt.Errorf("groups[%d]: target is required", i)
		}
		if len(g.Matchers) == 0 {
			return fmt.Errorf("groups[%d] (%s): at least one matcher is required", i, g.Target)
		}
		for j := range g.Matchers {
			if err := g.Matchers[j].compile(); err != nil {
				return fmt.Errorf("groups[%d] (%s) matchers[%d]: %w", i, g.Target, j, err)
			}
		}
	}
	sort.SliceStable(rs.Groups, func(i, j int) bool {
		return rs.Groups[i].Specificity > rs.Groups[j].Specificity
	})
	return nil
}

// Match returns the first group and matcher that fit name.
func (rs *RuleSet) Match(name string) (*RuleGroup, *Matcher, bool) {
	name = normalizeName(name)
	if name == "" {
		return nil, nil, false
	}
	for i := range rs.Groups {
		g := &rs.Groups[i]
		for j := range g.Matchers {
			if g.Matchers[j].Match(name) {
				return g, &g.Matchers[j], true
			}
		}
	}
	return nil, nil, false
}

// Targets lists the distinct target patterns in match order.
func (rs *RuleSet) Targets() []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range rs.Groups {
		if !seen[g.Target] {
			seen[g.Target] = true
			out = append(out, g.Target)
		}
	}
	return out
}
