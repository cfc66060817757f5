package missing

import (
	"fmt"
	"strings"
)

// Category is a semantic kind of missingness.
type Category int

const (
	// CategoryUnknown is the zero value and never appears in a loaded pattern.
	CategoryUnknown Category = iota
	NotApplicable
	DontKnow
	Refusal
	NotStated
	NotAsked
	// MissingData is the catch-all for missing or invalid data.
	MissingData
)

var categoryNames = map[Category]string{
	NotApplicable: "not_applicable",
	DontKnow:      "dont_know",
	Refusal:       "refusal",
	NotStated:     "not_stated",
	NotAsked:      "not_asked",
	MissingData:   "missing_data",
}

var categoryAliases = map[string]Category{
	"not_applicable": NotApplicable,
	"na":             NotApplicable,
	"dont_know":      DontKnow,
	"do_not_know":    DontKnow,
	"don't_know":     DontKnow,
	"refusal":        Refusal,
	"refused":        Refusal,
	"not_stated":     NotStated,
	"not_asked":      NotAsked,
	"missing_data":   MissingData,
	"missing":        MissingData,
	"invalid":        MissingData,
}

// Categories returns every known category in declaration order.
func Categories() []Category {
	return []Category{NotApplicable, DontKnow, Refusal, NotStated, NotAsked, MissingData}
}

// String returns the canonical configuration name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory maps a configuration name to a Category. Hyphens, spaces and
// underscores are interchangeable and matching ignores case.
func ParseCategory(name string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return CategoryUnknown, fmt.Errorf("unknown missing-value category %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if _, ok := categoryNames[c]; !ok {
		return nil, fmt.Errorf("cannot marshal %s", c)
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
