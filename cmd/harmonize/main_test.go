package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Big-Life-Lab/cchsflow-sub003/pkg/catalog"
	"github.com/Big-Life-Lab/cchsflow-sub003/pkg/missing"
)

// run executes the CLI with a clean environment and returns stdout and
// stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, k := range []string{
		"CCHSFLOW_PATTERNS_FILE", "CCHSFLOW_CATALOG_FILE", "CCHSFLOW_RULES_FILE",
		"CCHSFLOW_LOG_LEVEL", "CCHSFLOW_WATCH", missing.EnvPatternsFile,
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--log-level=error"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPatternsList(t *testing.T) {
	out, _, err := run(t, "patterns")
	require.NoError(t, err)
	for _, name := range []string{"single_digit_missing", "double_digit_missing", "triple_digit_missing", "not_asked_missing"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "embedded")
}

func TestPatternsShow(t *testing.T) {
	out, _, err := run(t, "patterns", "triple_digit_missing")
	require.NoError(t, err)
	assert.Contains(t, out, "Pattern: triple_digit_missing")
	assert.Contains(t, out, "not_applicable")
	assert.Contains(t, out, "996, 999.6")
	assert.Contains(t, out, "missing_data")
}

func TestPatternsErrors(t *testing.T) {
	_, _, err := run(t, "patterns", "no_such_pattern")
	assert.ErrorIs(t, err, missing.ErrUnknownPattern)

	_, _, err = run(t, "patterns", "--patterns", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, missing.ErrConfigNotFound)
}

func TestPatternsFromFile(t *testing.T) {
	path := filepath.Join("..", "..", "pkg", "missing", "testdata", "legacy_flat.yaml")
	out, _, err := run(t, "patterns", "--patterns", path)
	require.NoError(t, err)
	assert.Contains(t, out, "triple-digit")
	assert.NotContains(t, out, "double_digit_missing")
	assert.Contains(t, out, path)
}

func TestDetect(t *testing.T) {
	out, _, err := run(t, "detect", "HWTGBMI", "UNKNOWN_NEW_VAR")
	require.NoError(t, err)
	assert.Contains(t, out, "HWTGBMI: triple_digit_missing (naming rule:")
	assert.Contains(t, out, "UNKNOWN_NEW_VAR: no match")
}

func TestDetectWithCatalog(t *testing.T) {
	path := writeFile(t, "variables.csv", "variable,pattern\nDHH_SEX,single_digit_missing\n")

	out, _, err := run(t, "detect", "--catalog", path, "--explain", "DHH_SEX")
	require.NoError(t, err)
	assert.Contains(t, out, "catalogue entry: single_digit_missing")
}

func TestClassify(t *testing.T) {
	out, _, err := run(t, "classify", "-p", "triple_digit_missing", "25", "996", "NA(b)", "NA")
	require.NoError(t, err)
	assert.Contains(t, out, "format: mixed")
	assert.Regexp(t, `25\s+present`, out)
	assert.Regexp(t, `996\s+missing \(not_applicable\)`, out)
	assert.Regexp(t, `NA\(b\)\s+missing \(missing_data\)`, out)
	assert.Regexp(t, `NA\s+missing \(untyped\)`, out)
}

func TestClassifyDetectsPatternFromVariable(t *testing.T) {
	out, _, err := run(t, "classify", "--variable", "SMK_202", "9", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Pattern: single_digit_missing (format: raw)")
	assert.Regexp(t, `9\s+missing \(not_stated\)`, out)

	_, _, err = run(t, "classify", "1")
	assert.ErrorIs(t, err, catalog.ErrNoPattern)
}

func TestPropagate(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "mixed inputs give tagged output",
			args: []string{"-p", "triple_digit_missing", "1.75,NA(a)", "70,996"},
			want: "1.75\nNA(a)\n",
		},
		{
			name: "raw inputs give raw output",
			args: []string{"-p", "single_digit_missing", "9", "6"},
			want: "6\n",
		},
		{
			name: "forced tagged output",
			args: []string{"-p", "single_digit_missing", "--output", "tagged", "7,2", "8"},
			want: "NA(b)\nNA(b)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, append([]string{"propagate"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestPropagateIncompatibleLengths(t *testing.T) {
	out, errOut, err := run(t, "propagate", "-p", "triple_digit_missing", "--output", "tagged", "1,2,3", "1,2")
	require.NoError(t, err)
	assert.Equal(t, "NA(b)\nNA(b)\nNA(b)\n", out)
	assert.Contains(t, errOut, "warning")
}

func TestValidate(t *testing.T) {
	out, _, err := run(t, "validate", "-p", "triple_digit_missing", "--min", "15", "--max", "50", "22.5", "61", "996")
	require.NoError(t, err)
	assert.Equal(t, "22.5\n997\n996\n", out)

	out, _, err = run(t, "validate", "-p", "single_digit_missing", "--allowed", "1,2", "1", "3", "9")
	require.NoError(t, err)
	assert.Equal(t, "1\n9\n9\n", out)
}

func TestDerive(t *testing.T) {
	out, _, err := run(t, "derive", "-p", "triple_digit_missing", "--op", "ratio", "10,996", "2")
	require.NoError(t, err)
	assert.Equal(t, "5\n996\n", out)

	_, _, err = run(t, "derive", "-p", "triple_digit_missing", "--op", "mean", "1")
	assert.Error(t, err)

	_, _, err = run(t, "derive", "-p", "triple_digit_missing", "--op", "ratio", "1")
	assert.Error(t, err)
}

func TestConvert(t *testing.T) {
	in := writeFile(t, "data.csv", "id,HWTGBMI\n1,22.5\n2,996\n3,999.8\n4,\n")

	out, _, err := run(t, "convert", "--column", "hwtgbmi", in)
	require.NoError(t, err)
	assert.Equal(t, "id,HWTGBMI\n1,22.5\n2,NA(a)\n3,NA(b)\n4,\n", out)

	dest := filepath.Join(t.TempDir(), "tagged.csv")
	_, _, err = run(t, "convert", "--column", "HWTGBMI", "--out", dest, in)
	require.NoError(t, err)
	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, out, string(written))
}

func TestConvertErrors(t *testing.T) {
	in := writeFile(t, "data.csv", "id,SCORE\n1,996\n")

	_, _, err := run(t, "convert", "--column", "SCORE", in)
	assert.ErrorIs(t, err, catalog.ErrNoPattern)

	_, _, err = run(t, "convert", "--column", "OTHER", "-p", "triple_digit_missing", in)
	assert.ErrorContains(t, err, "not found in CSV header")
}
