// Package config loads StudyPal settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abhisek/studypal/internal/flow"
	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/payment"
	"github.com/abhisek/studypal/internal/tutor"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Listen      string        `yaml:"listen"`
	DBPath      string        `yaml:"db_path"`
	LogMode     string        `yaml:"log_mode"`
	CORSOrigins []string      `yaml:"cors_origins"`
	LLM         llm.Config    `yaml:"llm"`
	Flow        flow.Config   `yaml:"flow"`
	Quota       QuotaConfig   `yaml:"quota"`
	Payment     PaymentConfig `yaml:"payment"`
}

// QuotaConfig sets the free plan limit. With RedisAddr set, counts live in
// Redis; otherwise in the SQLite store.
type QuotaConfig struct {
	DailyLimit    int    `yaml:"daily_limit"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// PaymentConfig configures premium upgrades. Payments are off while the
// Razorpay key id is empty.
type PaymentConfig struct {
	Razorpay payment.Config      `yaml:"razorpay"`
	Premium  tutor.PremiumConfig `yaml:"premium"`
}

// Enabled reports whether a payment gateway is configured.
func (p PaymentConfig) Enabled() bool {
	return p.Razorpay.KeyID != ""
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:      ":8080",
		LogMode:     "production",
		CORSOrigins: []string{"http://localhost:3000"},
		LLM:         llm.DefaultConfig(),
		Flow:        flow.DefaultConfig(),
		Quota:       QuotaConfig{DailyLimit: 20},
		Payment: PaymentConfig{
			Premium: tutor.PremiumConfig{Amount: 49900, Currency: "INR"},
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/studypal/config.yaml.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "studypal", "config.yaml")
}

// Load builds the configuration: defaults, then the YAML file, then
// STUDYPAL_* overrides, then standard provider key discovery. An empty path
// reads DefaultPath if it exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	Discover(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv("STUDYPAL_" + key); v != "" {
			*dst = v
		}
	}
	num := func(key string, set func(int64)) error {
		v := os.Getenv("STUDYPAL_" + key)
		if v == "" {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("STUDYPAL_%s: %w", key, err)
		}
		set(n)
		return nil
	}

	str("LISTEN", &cfg.Listen)
	str("DB", &cfg.DBPath)
	str("LOG_MODE", &cfg.LogMode)
	if v := os.Getenv("STUDYPAL_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	str("LLM_PROVIDER", &cfg.LLM.Primary.Provider)
	str("LLM_API_KEY", &cfg.LLM.Primary.APIKey)
	str("LLM_MODEL", &cfg.LLM.Primary.Model)
	str("LLM_BASE_URL", &cfg.LLM.Primary.BaseURL)

	if v := os.Getenv("STUDYPAL_FALLBACK_PROVIDER"); v == "none" {
		cfg.LLM.Fallback = nil
	} else if cfg.LLM.Fallback != nil || v != "" {
		if cfg.LLM.Fallback == nil {
			cfg.LLM.Fallback = &llm.ProviderConfig{}
		}
		str("FALLBACK_PROVIDER", &cfg.LLM.Fallback.Provider)
		str("FALLBACK_API_KEY", &cfg.LLM.Fallback.APIKey)
		str("FALLBACK_MODEL", &cfg.LLM.Fallback.Model)
	}

	str("SPEECH_PROVIDER", &cfg.LLM.Speech.Provider)
	str("SPEECH_API_KEY", &cfg.LLM.Speech.APIKey)
	str("SPEECH_MODEL", &cfg.LLM.Speech.Model)

	str("REDIS_ADDR", &cfg.Quota.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Quota.RedisPassword)
	str("RAZORPAY_KEY_ID", &cfg.Payment.Razorpay.KeyID)
	str("RAZORPAY_KEY_SECRET", &cfg.Payment.Razorpay.KeySecret)

	return errors.Join(
		num("FREE_DAILY_LIMIT", func(n int64) { cfg.Quota.DailyLimit = int(n) }),
		num("PREMIUM_AMOUNT", func(n int64) { cfg.Payment.Premium.Amount = n }),
		num("MAX_ATTEMPTS", func(n int64) { cfg.LLM.Retry.MaxAttempts = int(n) }),
	)
}

// standardKeys lists the conventional API key variables in discovery
// priority order.
var standardKeys = []struct {
	provider string
	env      string
}{
	{"gemini", "GEMINI_API_KEY"},
	{"openai", "OPENAI_API_KEY"},
	{"anthropic", "ANTHROPIC_API_KEY"},
	{"openrouter", "OPENROUTER_API_KEY"},
}

func standardKey(provider string) string {
	for _, k := range standardKeys {
		if k.provider == provider {
			return os.Getenv(k.env)
		}
	}
	return ""
}

// Discover fills missing API keys from the standard provider variables.
// When the primary provider has no key at all, the first provider with a
// standard key is selected instead. A fallback tier that ends up without a
// key is dropped, and speech without a key is disabled. It reports whether
// the primary tier has a key.
func Discover(cfg *Config) bool {
	primary := &cfg.LLM.Primary
	if primary.Provider == "mock" {
		return true
	}
	if primary.APIKey == "" {
		primary.APIKey = standardKey(primary.Provider)
	}
	if primary.APIKey == "" {
		for _, k := range standardKeys {
			if v := os.Getenv(k.env); v != "" {
				primary.Provider, primary.APIKey, primary.Model = k.provider, v, ""
				break
			}
		}
	}

	if fb := cfg.LLM.Fallback; fb != nil && fb.Provider != "mock" && fb.APIKey == "" {
		fb.APIKey = standardKey(fb.Provider)
		if fb.APIKey == "" && fb.Provider == primary.Provider {
			fb.APIKey = primary.APIKey
		}
		if fb.APIKey == "" {
			cfg.LLM.Fallback = nil
		}
	}

	sp := &cfg.LLM.Speech
	if sp.Provider == "gemini" && sp.APIKey == "" {
		sp.APIKey = standardKey("gemini")
		if sp.APIKey == "" && primary.Provider == "gemini" {
			sp.APIKey = primary.APIKey
		}
		if sp.APIKey == "" {
			sp.Provider = ""
		}
	}

	return primary.APIKey != ""
}

// SpeechEnabled reports whether text-to-speech is configured.
func (c Config) SpeechEnabled() bool {
	return c.LLM.Speech.Provider != ""
}

// Validate checks the configuration is usable for serving.
func (c Config) Validate() error {
	var errs []error
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("llm: %w", err))
	}
	if c.Listen == "" {
		errs = append(errs, fmt.Errorf("listen address is required"))
	}
	switch c.LogMode {
	case "production", "development":
	default:
		errs = append(errs, fmt.Errorf("log_mode must be production or development, got %q", c.LogMode))
	}
	if c.Quota.DailyLimit < 0 {
		errs = append(errs, fmt.Errorf("quota.daily_limit must not be negative"))
	}
	if c.Payment.Enabled() {
		if c.Payment.Razorpay.KeySecret == "" {
			errs = append(errs, fmt.Errorf("payment.razorpay.key_secret is required with a key id"))
		}
		if c.Payment.Premium.Amount <= 0 {
			errs = append(errs, fmt.Errorf("payment.premium.amount must be positive"))
		}
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
