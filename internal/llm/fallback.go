package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/studypal/internal/logger"
)

// Tier is one model configuration the controller may use.
type Tier struct {
	Name        string // "primary", "fallback", ...
	Provider    Provider
	MaxAttempts int
}

// RetryPolicy is the ordered list of tiers plus the backoff base.
type RetryPolicy struct {
	Tiers       []Tier
	BackoffBase time.Duration
}

// FallbackProvider is a decorator that retries transient failures on each
// tier with linear backoff, then moves on to the next tier.
//
// Per request it walks Attempting(tier, n) states: a transient failure
// (overload, timeout) retries the same tier after BackoffBase*n while
// n < MaxAttempts, otherwise advances to the next tier at attempt 1.
// Any other failure, or running out of tiers, is final.
type FallbackProvider struct {
	policy RetryPolicy
	log    *logger.Logger

	// after is swapped in tests to observe backoff waits.
	after func(time.Duration) <-chan time.Time
}

// WithFallback wraps the policy's tiers in a single Provider.
func WithFallback(policy RetryPolicy, log *logger.Logger) *FallbackProvider {
	if log == nil {
		log = logger.Nop()
	}
	return &FallbackProvider{policy: policy, log: log, after: time.After}
}

func (f *FallbackProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if len(f.policy.Tiers) == 0 {
		return nil, fmt.Errorf("fallback controller has no tiers")
	}

	var lastErr error
	for ti, tier := range f.policy.Tiers {
		maxAttempts := max(tier.MaxAttempts, 1)

		for n := 1; n <= maxAttempts; n++ {
			actx := withAttempt(ctx, Attempt{Tier: tier.Name, Number: n})
			resp, err := tier.Provider.Generate(actx, req)
			if err == nil {
				return resp, nil
			}
			lastErr = err

			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil, err
			}
			if !IsTransient(err) {
				return nil, err
			}

			if n == maxAttempts {
				if ti < len(f.policy.Tiers)-1 {
					f.log.Warn("tier exhausted, falling back",
						"purpose", PurposeFrom(ctx),
						"tier", tier.Name,
						"next_tier", f.policy.Tiers[ti+1].Name,
						"error", err)
				}
				break
			}

			wait := f.policy.BackoffBase * time.Duration(n)
			f.log.Debug("transient LLM failure, backing off",
				"purpose", PurposeFrom(ctx),
				"tier", tier.Name,
				"attempt", n,
				"wait", wait,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-f.after(wait):
			}
		}
	}

	return nil, lastErr
}

// ModelID returns the primary tier's model.
func (f *FallbackProvider) ModelID() string {
	if len(f.policy.Tiers) == 0 {
		return ""
	}
	return f.policy.Tiers[0].Provider.ModelID()
}

// Policy returns the controller's retry policy.
func (f *FallbackProvider) Policy() RetryPolicy {
	return f.policy
}
