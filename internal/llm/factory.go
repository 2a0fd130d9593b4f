package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/studypal/internal/logger"
	"github.com/abhisek/studypal/internal/store"
)

// NewBaseProvider creates an undecorated Provider for one tier.
func NewBaseProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	var (
		p   Provider
		err error
	)
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	switch cfg.Provider {
	case "anthropic":
		p, err = NewAnthropicProvider(cfg)
	case "openai":
		p, err = NewOpenAIProvider(cfg)
	case "gemini":
		p, err = NewGeminiProvider(ctx, cfg)
	case "openrouter":
		p, err = NewOpenRouterProvider(cfg)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return p, nil
}

// NewProvider builds the text-generation provider from configuration:
// caller → fallback controller → logging → base, one logged base per tier.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (*FallbackProvider, error) {
	primary, err := NewBaseProvider(ctx, cfg.Primary)
	if err != nil {
		return nil, err
	}

	tiers := []Tier{{
		Name:        "primary",
		Provider:    WithLogging(primary, cfg.Primary.Provider, eventRepo, log),
		MaxAttempts: cfg.Retry.MaxAttempts,
	}}

	if cfg.Fallback != nil {
		fallback, err := NewBaseProvider(ctx, *cfg.Fallback)
		if err != nil {
			return nil, fmt.Errorf("fallback tier: %w", err)
		}
		tiers = append(tiers, Tier{
			Name:        "fallback",
			Provider:    WithLogging(fallback, cfg.Fallback.Provider, eventRepo, log),
			MaxAttempts: max(cfg.Retry.FallbackAttempts, 1),
		})
	}

	return WithFallback(RetryPolicy{Tiers: tiers, BackoffBase: cfg.Retry.BackoffBase}, log), nil
}

// NewSpeechProvider builds the text-to-speech provider. It has a single
// tier: there is no cheaper speech model to fall back to.
func NewSpeechProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (*FallbackProvider, error) {
	var base Provider
	switch cfg.Speech.Provider {
	case "gemini":
		sp, err := NewGeminiSpeechProvider(ctx, cfg.Speech)
		if err != nil {
			return nil, fmt.Errorf("initializing speech provider: %w", err)
		}
		base = sp
	case "mock":
		base = NewNamedMockProvider("mock-tts")
	default:
		return nil, fmt.Errorf("unsupported speech provider: %q", cfg.Speech.Provider)
	}

	return WithFallback(RetryPolicy{
		Tiers: []Tier{{
			Name:        "speech",
			Provider:    WithLogging(base, cfg.Speech.Provider, eventRepo, log),
			MaxAttempts: cfg.Retry.MaxAttempts,
		}},
		BackoffBase: cfg.Retry.BackoffBase,
	}, log), nil
}
