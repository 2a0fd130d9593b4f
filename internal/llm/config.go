package llm

import (
	"fmt"
	"time"
)

// ProviderConfig configures one model tier.
type ProviderConfig struct {
	// Provider selects the backend.
	// Values: "anthropic", "openai", "gemini", "openrouter", "mock"
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"` // Optional endpoint override.
}

// defaultModels is used when a tier names a provider but no model.
var defaultModels = map[string]string{
	"anthropic":  "claude-sonnet",
	"openai":     "gpt-4o-mini",
	"gemini":     "gemini-flash",
	"openrouter": "google/gemini-2.5-flash",
}

// DefaultModel returns the model used for provider when none is set.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// Config holds all model configuration. It is built once at startup and
// passed to NewProvider; nothing reads it afterwards.
type Config struct {
	// Primary is the higher-capability tier every request starts on.
	Primary ProviderConfig `yaml:"primary"`

	// Fallback is tried once the primary tier is exhausted by transient
	// failures. Nil disables fallback.
	Fallback *ProviderConfig `yaml:"fallback"`

	// Speech configures text-to-speech. Only "gemini" and "mock" are
	// supported. Speech never falls back.
	Speech ProviderConfig `yaml:"speech"`

	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig configures the fallback controller.
type RetryConfig struct {
	// MaxAttempts bounds attempts on the primary tier (and on speech).
	MaxAttempts int `yaml:"max_attempts"`

	// FallbackAttempts bounds attempts on the fallback tier.
	FallbackAttempts int `yaml:"fallback_attempts"`

	// BackoffBase is multiplied by the attempt number to get the pause
	// before the next attempt on the same tier.
	BackoffBase time.Duration `yaml:"backoff_base"`
}

// DefaultConfig returns a Config with sensible defaults: Gemini flash as
// primary and flash-lite as the cheaper fallback.
func DefaultConfig() Config {
	return Config{
		Primary: ProviderConfig{
			Provider: "gemini",
			Model:    "gemini-flash",
		},
		Fallback: &ProviderConfig{
			Provider: "gemini",
			Model:    "gemini-flash-lite",
		},
		Speech: ProviderConfig{
			Provider: "gemini",
			Model:    "gemini-tts",
		},
		Retry: RetryConfig{
			MaxAttempts:      3,
			FallbackAttempts: 1,
			BackoffBase:      1 * time.Second,
		},
	}
}

// Validate checks that every configured tier names a known provider and
// carries its API key.
func (c Config) Validate() error {
	if err := c.Primary.Validate(); err != nil {
		return fmt.Errorf("primary: %w", err)
	}
	if c.Fallback != nil {
		if err := c.Fallback.Validate(); err != nil {
			return fmt.Errorf("fallback: %w", err)
		}
	}
	if c.Speech.Provider != "" {
		switch c.Speech.Provider {
		case "gemini", "mock":
		default:
			return fmt.Errorf("speech: unsupported provider %q", c.Speech.Provider)
		}
		if err := c.Speech.Validate(); err != nil {
			return fmt.Errorf("speech: %w", err)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	return nil
}

// Validate checks that the tier names a known provider with an API key.
func (p ProviderConfig) Validate() error {
	switch p.Provider {
	case "anthropic", "openai", "gemini", "openrouter":
		if p.APIKey == "" {
			return fmt.Errorf("an API key is required for the %s provider", p.Provider)
		}
	case "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", p.Provider)
	}
	return nil
}
