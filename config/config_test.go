package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/rmannibucau/therian/config"
)

func Test_Default(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Operators.Disabled)
	assert.Empty(t, cfg.Operators.DependsOn)
}

func Test_ZapLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "empty defaults to info", level: "", want: zapcore.InfoLevel},
		{name: "debug", level: "debug", want: zapcore.DebugLevel},
		{name: "warn", level: "warn", want: zapcore.WarnLevel},
		{name: "invalid", level: "shouting", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := config.Config{LogLevel: tt.level}.ZapLevel()
			if tt.wantErr {
				require.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_Parse(t *testing.T) {
	t.Parallel()

	t.Run("full document", func(t *testing.T) {
		t.Parallel()

		cfg, err := config.Parse([]byte(`
log_level: debug
operators:
  disabled:
    - copy-to-array
  depends_on:
    convert-to-list:
      - convert-to-iterator
`))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, []string{"copy-to-array"}, cfg.Operators.Disabled)
		assert.Equal(t, map[string][]string{
			"convert-to-list": {"convert-to-iterator"},
		}, cfg.Operators.DependsOn)
	})

	t.Run("empty document keeps defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := config.Parse(nil)
		require.NoError(t, err)
		assert.Equal(t, config.Default(), cfg)
	})

	t.Run("malformed document", func(t *testing.T) {
		t.Parallel()

		_, err := config.Parse([]byte("log_level: [unterminated"))
		require.Error(t, err)
	})
}

func Test_ParseTOML(t *testing.T) {
	t.Parallel()

	cfg, err := config.ParseTOML([]byte(`
log_level = "warn"

[operators]
disabled = ["copy-to-array"]

[operators.depends_on]
convert-to-list = ["convert-to-iterator"]
`))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"copy-to-array"}, cfg.Operators.Disabled)
	assert.Equal(t, map[string][]string{
		"convert-to-list": {"convert-to-iterator"},
	}, cfg.Operators.DependsOn)
}

func Test_Load(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "therian.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
operators:
  disabled:
    - copy-to-array
`), 0o600))

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, []string{"copy-to-array"}, cfg.Operators.Disabled)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("THERIAN_LOG_LEVEL", "error")

		path := filepath.Join(t.TempDir(), "therian.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o600))

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.LogLevel)
	})

	t.Run("missing file falls back to env", func(t *testing.T) {
		t.Setenv("THERIAN_LOG_LEVEL", "warn")

		cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.LogLevel)
	})
}

func Test_LoadEnv(t *testing.T) {
	t.Setenv("THERIAN_LOG_LEVEL", "debug")
	t.Setenv("THERIAN_OPERATORS_DISABLED", "copy-to-array,convert-to-list")

	cfg, err := config.LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"copy-to-array", "convert-to-list"}, cfg.Operators.Disabled)
}
