package llm

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overloadedResp() MockResponse { return MockResponse{Err: &ErrOverloaded{}} }

func okResp(body string) MockResponse { return MockResponse{Content: json.RawMessage(body)} }

// recordAfter replaces the controller's timer with one that fires at once
// and records every requested wait.
func recordAfter(f *FallbackProvider) *[]time.Duration {
	var waits []time.Duration
	f.after = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	return &waits
}

func twoTiers(primary, fallback *MockProvider) *FallbackProvider {
	return WithFallback(RetryPolicy{
		Tiers: []Tier{
			{Name: "primary", Provider: primary, MaxAttempts: 3},
			{Name: "fallback", Provider: fallback, MaxAttempts: 1},
		},
		BackoffBase: time.Second,
	}, nil)
}

func TestFallback_PrimarySucceeds(t *testing.T) {
	primary := NewNamedMockProvider("big", okResp(`{"x":1}`))
	fallback := NewNamedMockProvider("small")
	f := twoTiers(primary, fallback)
	waits := recordAfter(f)

	resp, err := f.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "big", resp.Model)
	assert.Equal(t, 1, primary.CallCount())
	assert.Equal(t, 0, fallback.CallCount())
	assert.Empty(t, *waits)
}

func TestFallback_RetriesThenSucceeds(t *testing.T) {
	primary := NewNamedMockProvider("big", overloadedResp(), MockResponse{Err: &ErrTimeout{}}, okResp(`{"x":1}`))
	fallback := NewNamedMockProvider("small")
	f := twoTiers(primary, fallback)
	waits := recordAfter(f)

	resp, err := f.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "big", resp.Model)
	assert.Equal(t, 3, primary.CallCount())
	assert.Equal(t, 0, fallback.CallCount())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestFallback_ExhaustedPrimaryFallsBackOnce(t *testing.T) {
	primary := NewNamedMockProvider("big", overloadedResp(), overloadedResp(), overloadedResp())
	fallback := NewNamedMockProvider("small", okResp(`{"x":2}`))
	f := twoTiers(primary, fallback)
	waits := recordAfter(f)

	resp, err := f.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "small", resp.Model)
	assert.Equal(t, 3, primary.CallCount())
	assert.Equal(t, 1, fallback.CallCount())
	// No pause after the final primary attempt.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestFallback_AllTiersExhausted(t *testing.T) {
	primary := NewNamedMockProvider("big", overloadedResp(), overloadedResp(), overloadedResp())
	fallback := NewNamedMockProvider("small", overloadedResp())
	f := twoTiers(primary, fallback)
	recordAfter(f)

	_, err := f.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, KindOverloaded, Classify(err))
	assert.Equal(t, 3, primary.CallCount())
	assert.Equal(t, 1, fallback.CallCount())
}

func TestFallback_TerminalErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		resp MockResponse
		want Kind
	}{
		{"validation", MockResponse{Err: &ErrInvalidResponse{}}, KindValidationFailed},
		{"rate limit", MockResponse{Err: &ErrRateLimit{}}, KindRateLimited},
		{"unknown", MockResponse{Err: ErrMockExhausted}, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := NewNamedMockProvider("big", tt.resp)
			fallback := NewNamedMockProvider("small", okResp(`{}`))
			f := twoTiers(primary, fallback)
			waits := recordAfter(f)

			_, err := f.Generate(context.Background(), Request{})
			require.Error(t, err)
			assert.Equal(t, tt.want, Classify(err))
			assert.Equal(t, 1, primary.CallCount())
			assert.Equal(t, 0, fallback.CallCount())
			assert.Empty(t, *waits)
		})
	}
}

func TestFallback_CancelDuringBackoff(t *testing.T) {
	primary := NewNamedMockProvider("big", overloadedResp(), okResp(`{}`))
	f := WithFallback(RetryPolicy{
		Tiers:       []Tier{{Name: "primary", Provider: primary, MaxAttempts: 3}},
		BackoffBase: time.Hour,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	f.after = func(time.Duration) <-chan time.Time {
		cancel()
		return make(chan time.Time)
	}

	_, err := f.Generate(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, primary.CallCount())
}

func TestFallback_ModelIDAndNoTiers(t *testing.T) {
	f := twoTiers(NewNamedMockProvider("big"), NewNamedMockProvider("small"))
	assert.Equal(t, "big", f.ModelID())

	empty := WithFallback(RetryPolicy{}, nil)
	assert.Equal(t, "", empty.ModelID())
	_, err := empty.Generate(context.Background(), Request{})
	assert.Error(t, err)
}

func TestFallback_AttemptsReachLoggingLayer(t *testing.T) {
	var seen []Attempt
	probe := providerFunc(func(ctx context.Context, _ Request) (*Response, error) {
		seen = append(seen, AttemptFrom(ctx))
		return nil, &ErrOverloaded{}
	})
	f := WithFallback(RetryPolicy{Tiers: []Tier{
		{Name: "primary", Provider: probe, MaxAttempts: 2},
		{Name: "fallback", Provider: probe, MaxAttempts: 1},
	}}, nil)
	recordAfter(f)

	_, _ = f.Generate(context.Background(), Request{})
	assert.Equal(t, []Attempt{
		{Tier: "primary", Number: 1},
		{Tier: "primary", Number: 2},
		{Tier: "fallback", Number: 1},
	}, seen)
}

type providerFunc func(context.Context, Request) (*Response, error)

func (f providerFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

func (f providerFunc) ModelID() string { return "func" }
