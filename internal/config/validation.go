package config

import "fmt"

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// API key is required for all Gemini operations.
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY (get one at https://ai.google.dev/gemini-api/docs/api-key)",
			ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// MaxTokens range: 1 to 2097152 (Gemini 2.5 max context window)
	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.RequestsPerMinute < 0 || c.RequestsPerMinute > 6000 {
		return fmt.Errorf("%w: must be between 0 and 6000, got %d", ErrInvalidRateLimit, c.RequestsPerMinute)
	}

	switch c.StorageDriver {
	case DriverFile, DriverSQLite:
	default:
		return fmt.Errorf("%w: %q (supported: %s, %s)",
			ErrInvalidStorageDriver, c.StorageDriver, DriverFile, DriverSQLite)
	}

	return nil
}
