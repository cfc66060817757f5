package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every CCHSFLOW variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PATTERNS_FILE", "CATALOG_FILE", "RULES_FILE", "LOG_LEVEL", "WATCH"} {
		key := Prefix + "_" + k
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.Watch)
	assert.Empty(t, cfg.PatternsFile)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CCHSFLOW_PATTERNS_FILE", "/etc/cchsflow/patterns.yaml")
	t.Setenv("CCHSFLOW_CATALOG_FILE", "variables.csv")
	t.Setenv("CCHSFLOW_RULES_FILE", "rules.yaml")
	t.Setenv("CCHSFLOW_LOG_LEVEL", "debug")
	t.Setenv("CCHSFLOW_WATCH", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, &Config{
		PatternsFile: "/etc/cchsflow/patterns.yaml",
		CatalogFile:  "variables.csv",
		RulesFile:    "rules.yaml",
		LogLevel:     "debug",
		Watch:        true,
	}, cfg)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad level", map[string]string{"CCHSFLOW_LOG_LEVEL": "loud"}},
		{"bad bool", map[string]string{"CCHSFLOW_WATCH": "sometimes"}},
		{"watch without file", map[string]string{"CCHSFLOW_WATCH": "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
