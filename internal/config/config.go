// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.mobot/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the Gemini API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidStorageDriver indicates an unsupported persistence driver.
	ErrInvalidStorageDriver = errors.New("invalid storage driver")

	// ErrInvalidRateLimit indicates the requests-per-minute value is out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")
)

// Persistence driver identifiers used in Config.StorageDriver.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// Config stores application configuration.
// SECURITY: the API key is never included in serialized or logged forms;
// see LogValue.
type Config struct {
	// Gemini model configuration
	GeminiAPIKey string  `mapstructure:"gemini_api_key"` // SENSITIVE: masked in LogValue
	ModelName    string  `mapstructure:"model_name"`
	Temperature  float32 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`

	// WebSearch enables Google Search grounding by default for new turns.
	// The chat front can still toggle it per turn.
	WebSearch bool `mapstructure:"web_search"`

	// RequestsPerMinute caps outbound Gemini calls (0 = unlimited).
	RequestsPerMinute int `mapstructure:"requests_per_minute"`

	// Persistence configuration
	StorageDriver string `mapstructure:"storage_driver"` // "file" (default) or "sqlite"
	DataDir       string `mapstructure:"data_dir"`       // default ~/.mobot

	// Logging configuration
	LogLevel string `mapstructure:"log_level"` // debug | info | warn | error
	LogJSON  bool   `mapstructure:"log_json"`

	// Observability configuration (see observability.go)
	Tracing TracingConfig `mapstructure:"tracing"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".mobot")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 8192)
	v.SetDefault("web_search", false)
	v.SetDefault("requests_per_minute", 30)

	v.SetDefault("storage_driver", DriverFile)
	v.SetDefault("data_dir", configDir)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "mobot")
	v.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key string, envVars ...string) {
		args := append([]string{key}, envVars...)
		if err := v.BindEnv(args...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q: %v", key, err))
		}
	}

	// GEMINI_API_KEY is the conventional variable for the Gemini SDK;
	// MOBOT_GEMINI_API_KEY wins when both are set.
	mustBind("gemini_api_key", "MOBOT_GEMINI_API_KEY", "GEMINI_API_KEY")

	mustBind("model_name", "MOBOT_MODEL_NAME")
	mustBind("web_search", "MOBOT_WEB_SEARCH")
	mustBind("storage_driver", "MOBOT_STORAGE_DRIVER")
	mustBind("data_dir", "MOBOT_DATA_DIR")
	mustBind("log_level", "MOBOT_LOG_LEVEL")
	mustBind("tracing.enabled", "MOBOT_TRACING_ENABLED")
	mustBind("tracing.endpoint", "MOBOT_TRACING_ENDPOINT")
}

// LogValue implements slog.LogValuer so the configuration can be logged
// without leaking the API key.
func (c *Config) LogValue() slog.Value {
	key := "unset"
	if c.GeminiAPIKey != "" {
		key = "set"
	}
	return slog.GroupValue(
		slog.String("gemini_api_key", key),
		slog.String("model_name", c.ModelName),
		slog.Bool("web_search", c.WebSearch),
		slog.String("storage_driver", c.StorageDriver),
		slog.String("data_dir", c.DataDir),
	)
}
