package missing

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return data
}

func TestParseConfigLegacyFlat(t *testing.T) {
	patterns, err := ParseConfig(readTestdata(t, "legacy_flat.yaml"))
	require.NoError(t, err)
	require.Len(t, patterns, 2, "schema_version must not be read as a pattern")

	p := patterns["triple-digit"]
	require.NotNil(t, p)
	assert.Equal(t, "continuous measures", p.Description)
	assert.Equal(t, []Category{NotApplicable, MissingData}, p.Categories())

	na, ok := p.Rule(NotApplicable)
	require.True(t, ok)
	assert.Equal(t, []float64{996, 999.6}, na.Codes)
	assert.Equal(t, []string{"a"}, na.Markers)

	md, ok := p.Rule(MissingData)
	require.True(t, ok)
	assert.Equal(t, []float64{997, 998, 999, 999.7, 999.8, 999.9}, md.Codes)
	assert.Equal(t, []string{"b"}, md.Markers, "NA::b is normalised to b")
	assert.Equal(t, MissingData, p.Lowest().Category)
}

func TestParseConfigPrefersNested(t *testing.T) {
	patterns, err := ParseConfig(readTestdata(t, "both_layouts.yaml"))
	require.NoError(t, err)

	assert.Contains(t, patterns, "nested_only")
	assert.NotContains(t, patterns, "legacy_only")
}

func TestParseConfigEmbeddedDefaults(t *testing.T) {
	data, err := defaultsFS.ReadFile("defaults/missing_data_patterns.yaml")
	require.NoError(t, err)

	patterns, err := ParseConfig(data)
	require.NoError(t, err)
	for _, name := range []string{"single_digit_missing", "double_digit_missing", "triple_digit_missing", "not_asked_missing"} {
		assert.Contains(t, patterns, name)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "not yaml",
			doc:  "priority_hierarchy: [unterminated",
		},
		{
			name: "no patterns",
			doc:  "schema_version: 1\nmetadata:\n  owner: nobody\n",
		},
		{
			name: "unknown category",
			doc: `p:
  priority_hierarchy:
    sleepy: {priority: 1, original_codes: [6], tagged_na: [a]}
`,
		},
		{
			name: "duplicate priority",
			doc: `p:
  priority_hierarchy:
    not_applicable: {priority: 1, original_codes: [6], tagged_na: [a]}
    dont_know: {priority: 1, original_codes: [7], tagged_na: [b]}
`,
		},
		{
			name: "overlapping codes",
			doc: `p:
  priority_hierarchy:
    not_applicable: {priority: 1, original_codes: [6, 7], tagged_na: [a]}
    dont_know: {priority: 2, original_codes: [7], tagged_na: [b]}
`,
		},
		{
			name: "missing marker",
			doc: `p:
  priority_hierarchy:
    not_applicable: {priority: 1, original_codes: [6]}
`,
		},
		{
			name: "zero priority",
			doc: `p:
  priority_hierarchy:
    not_applicable: {priority: 0, original_codes: [6], tagged_na: [a]}
`,
		},
		{
			name: "same category twice through aliases",
			doc: `p:
  priority_hierarchy:
    missing: {priority: 1, original_codes: [8], tagged_na: [b]}
    invalid: {priority: 2, original_codes: [9], tagged_na: [b]}
`,
		},
		{
			name: "non-numeric code",
			doc: `p:
  priority_hierarchy:
    not_applicable: {priority: 1, original_codes: [six], tagged_na: [a]}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfigParse)
		})
	}
}

func TestParseConfigReportsInvariantViolations(t *testing.T) {
	_, err := ParseConfig([]byte(`p:
  priority_hierarchy:
    not_applicable: {priority: 1, original_codes: [6, 9], tagged_na: [a]}
    not_stated: {priority: 1, original_codes: [9], tagged_na: [b]}
`))
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2, "one priority clash and one code clash")
	keys := make([]string, len(verrs))
	for i, e := range verrs {
		keys[i] = e.Key
		assert.Contains(t, e.Path(), "priority_hierarchy.")
	}
	assert.ElementsMatch(t, []string{"priority", "original_codes"}, keys)
}

func TestCleanMarker(t *testing.T) {
	tests := map[string]string{
		"a":     "a",
		" B ":   "b",
		"NA(c)": "c",
		"NA::d": "d",
		"na::e": "e",
		".f":    "f",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanMarker(in), "cleanMarker(%q)", in)
	}
}
