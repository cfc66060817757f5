package missing

import (
	"fmt"
	"strings"
)

// ValidationError is one invariant violation inside a pattern. Category is
// CategoryUnknown for pattern-level problems.
type ValidationError struct {
	Category Category
	Key      string
	Message  string
	Value    interface{}
}

// Path is the YAML location of the offending key, e.g.
// "priority_hierarchy.refusal.priority".
func (e ValidationError) Path() string {
	if e.Category == CategoryUnknown {
		return e.Key
	}
	path := "priority_hierarchy." + e.Category.String()
	if e.Key != "" {
		path += "." + e.Key
	}
	return path
}

func (e ValidationError) Error() string {
	if e.Value == nil {
		return e.Path() + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (got %v)", e.Path(), e.Message, e.Value)
}

// ValidationErrors collects every violation found in one pattern. It matches
// ErrConfigParse under errors.Is.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (errs ValidationErrors) Is(target error) bool {
	return target == ErrConfigParse
}

// ValidatePattern checks the invariants of a pattern: at least one rule, known
// categories used once each, positive and distinct priorities, at least one
// tagged marker per rule, and sentinel codes disjoint across rules.
func ValidatePattern(p *Pattern) ValidationErrors {
	var errs ValidationErrors
	fail := func(c Category, key, msg string, value interface{}) {
		errs = append(errs, ValidationError{Category: c, Key: key, Message: msg, Value: value})
	}

	if p.Name == "" {
		fail(CategoryUnknown, "name", "pattern name is required", nil)
	}
	if len(p.rules) == 0 {
		fail(CategoryUnknown, "priority_hierarchy", "at least one category is required", nil)
		return errs
	}

	seenCategory := make(map[Category]bool)
	seenPriority := make(map[int]Category)
	codeOwner := make(map[float64]Category)

	for _, r := range p.rules {
		c := r.Category
		if _, ok := categoryNames[c]; !ok {
			fail(CategoryUnknown, "priority_hierarchy", "unknown category", int(c))
			continue
		}
		if seenCategory[c] {
			fail(c, "", "category declared more than once", nil)
		}
		seenCategory[c] = true

		if r.Priority < 1 {
			fail(c, "priority", "must be >= 1", r.Priority)
		}
		if other, ok := seenPriority[r.Priority]; ok && other != c {
			fail(c, "priority", "already used by "+other.String(), r.Priority)
		}
		seenPriority[r.Priority] = c

		if len(r.Markers) == 0 {
			fail(c, "tagged_na", "at least one marker is required", nil)
		}

		for _, code := range r.Codes {
			if other, ok := codeOwner[code]; ok && other != c {
				fail(c, "original_codes", "code already belongs to "+other.String(), code)
			}
			codeOwner[code] = c
		}
	}

	return errs
}
