package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir()) // isolate from any real ~/.mobot/config.yaml
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("MOBOT_MODEL_NAME", "gemini-2.5-pro")
	t.Setenv("MOBOT_STORAGE_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.ModelName)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultModelName, cfg.ModelName)
	assert.Equal(t, DriverFile, cfg.StorageDriver)
	assert.Equal(t, float32(0.7), cfg.Temperature)
	assert.False(t, cfg.WebSearch)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "localhost:4318", cfg.Tracing.Endpoint)
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("MOBOT_GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestAPIKeyPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "generic")
	t.Setenv("MOBOT_GEMINI_API_KEY", "specific")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "specific", cfg.GeminiAPIKey)
}

func TestLogValueMasksAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.GeminiAPIKey = "super-secret"

	val := cfg.LogValue()
	for _, attr := range val.Group() {
		if attr.Key == "gemini_api_key" {
			assert.Equal(t, "set", attr.Value.String())
			return
		}
	}
	t.Fatal("gemini_api_key attribute not found")
}

var _ slog.LogValuer = (*Config)(nil)
