package workbook

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultLimits(), cfg.Limits)
	assert.Empty(t, cfg.Culture)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.MetricsEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
limits:
  max_row: 500
  max_column: 40
culture: de-DE
log_level: debug
metrics_enabled: false
`))
	require.NoError(t, err)
	assert.Equal(t, Limits{MaxRow: 500, MaxColumn: 40}, cfg.Limits)
	assert.Equal(t, "de-DE", cfg.Culture)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.False(t, cfg.MetricsEnabled)

	// fields left out keep their defaults
	cfg, err = ParseConfig([]byte("culture: en-GB\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultLimits(), cfg.Limits)
	assert.Equal(t, "info", cfg.LogLevel)

	_, err = ParseConfig([]byte("limits: [1, 2"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"unknown culture", func(c *Config) { c.Culture = "not a culture!" }},
		{"zero rows", func(c *Config) { c.Limits.MaxRow = 0 }},
		{"too many columns", func(c *Config) { c.Limits.MaxColumn = DefaultLimits().MaxColumn + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, IsAppError(err, InvalidArgument), "got %v", err)

			_, err = NewWorkbook(WithConfig(cfg))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\nculture: fr-FR\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	assert.Equal(t, "fr-FR", cfg.Culture)

	t.Setenv("WORKBOOK_LOG_LEVEL", "ERROR")
	t.Setenv("WORKBOOK_CULTURE", "en-US")
	t.Setenv("WORKBOOK_METRICS_ENABLED", "false")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, cfg.SlogLevel())
	assert.Equal(t, "en-US", cfg.Culture)
	assert.False(t, cfg.MetricsEnabled)

	t.Setenv("WORKBOOK_METRICS_ENABLED", "sometimes")
	_, err = LoadConfig("")
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSlogLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Config{}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "info"}.SlogLevel())
}

func TestValidateSheetName(t *testing.T) {
	for _, name := range []string{"Sheet1", "My Data", "Données 2024", "a'b", "1234567890123456789012345678901"} {
		assert.NoError(t, ValidateSheetName(name), name)
	}
	for _, name := range []string{"", "'quoted", "trailing'", "a:b", "a/b", `a\b`, "a?b", "a*b", "[x]", "12345678901234567890123456789012"} {
		assert.True(t, IsAppError(ValidateSheetName(name), InvalidArgument), name)
	}
}
