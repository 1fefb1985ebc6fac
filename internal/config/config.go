// Package config provides application configuration with multi-source
// priority: environment variables over config file
// (~/.lorewarden/config.yaml) over defaults.
//
// Sensitive data (the Gemini API key) is never logged; MarshalJSON and
// String mask it. Validation is fail-fast with sentinel errors checked via
// errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	configDirName = ".lorewarden"

	// DefaultModel is the completion model used when none is configured.
	DefaultModel = "gemini-2.5-flash"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Model configuration
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// GeminiAPIKey authenticates against the model provider.
	// SENSITIVE: masked in MarshalJSON.
	GeminiAPIKey string `mapstructure:"gemini_api_key" json:"gemini_api_key"`

	// Completion call bounds
	CompletionTimeout time.Duration `mapstructure:"completion_timeout" json:"completion_timeout"`
	RateLimit         float64       `mapstructure:"rate_limit" json:"rate_limit"`
	RateBurst         int           `mapstructure:"rate_burst" json:"rate_burst"`

	// Knowledge base and persistence locations
	KnowledgePath string `mapstructure:"knowledge_path" json:"knowledge_path"`
	StorePath     string `mapstructure:"store_path" json:"store_path"`

	// Serve mode
	Addr string `mapstructure:"addr" json:"addr"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, configDirName)
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
		// A missing config file is not an error, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("model_name", DefaultModel)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("max_tokens", 512)

	v.SetDefault("completion_timeout", "30s")
	v.SetDefault("rate_limit", 10.0)
	v.SetDefault("rate_burst", 30)

	v.SetDefault("knowledge_path", filepath.Join(configDir, "knowledge_base.txt"))
	v.SetDefault("store_path", filepath.Join(configDir, "sessions.json"))

	v.SetDefault("addr", "127.0.0.1:3400")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly. GEMINI_API_KEY
// is the only secret; the LOREWARDEN_* variables are runtime overrides.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("model_name", "LOREWARDEN_MODEL_NAME")
	mustBind("knowledge_path", "LOREWARDEN_KNOWLEDGE_PATH")
	mustBind("store_path", "LOREWARDEN_STORE_PATH")
	mustBind("addr", "LOREWARDEN_ADDR")
	mustBind("log_level", "LOREWARDEN_LOG_LEVEL")
	mustBind("log_json", "LOREWARDEN_LOG_JSON")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debug
// utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking. When adding sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// SlogLevel maps the configured log level name to a slog.Level.
// Unknown names fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
