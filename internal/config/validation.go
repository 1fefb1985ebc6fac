package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidTimeout indicates the completion timeout is invalid.
	ErrInvalidTimeout = errors.New("invalid completion timeout")

	// ErrInvalidRateLimit indicates the rate limit settings are invalid.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrMissingKnowledgePath indicates no knowledge base location is set.
	ErrMissingKnowledgePath = errors.New("missing knowledge path")

	// ErrMissingStorePath indicates no session store location is set.
	ErrMissingStorePath = errors.New("missing store path")
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// The API key is deliberately not checked here: commands that never talk
// to the provider (e.g. listing sessions) must work without it. Use
// ValidateCompletion before creating a completion client.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range per the Gemini API: 0.0 (deterministic) to 2.0.
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 65536 {
		return fmt.Errorf("%w: must be between 1 and 65,536, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.CompletionTimeout <= 0 {
		return fmt.Errorf("%w: must be positive, got %s", ErrInvalidTimeout, c.CompletionTimeout)
	}

	if c.RateLimit <= 0 || c.RateBurst < 1 {
		return fmt.Errorf("%w: rate_limit must be positive and rate_burst at least 1, got %.1f/%d",
			ErrInvalidRateLimit, c.RateLimit, c.RateBurst)
	}

	if c.KnowledgePath == "" {
		return fmt.Errorf("%w: knowledge_path cannot be empty", ErrMissingKnowledgePath)
	}

	if c.StorePath == "" {
		return fmt.Errorf("%w: store_path cannot be empty", ErrMissingStorePath)
	}

	return nil
}

// ValidateCompletion checks the requirements for talking to the model
// provider on top of Validate.
func (c *Config) ValidateCompletion() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	return nil
}
