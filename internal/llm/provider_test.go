package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMockProvider_ReturnsCannedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	resp1, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp1.Content) != `{"a":1}` {
		t.Fatalf("expected {\"a\":1}, got %s", resp1.Content)
	}
	if resp1.Usage.InputTokens != 10 {
		t.Fatalf("expected 10 input tokens, got %d", resp1.Usage.InputTokens)
	}
	if resp1.StopReason != "end" {
		t.Fatalf("expected stop reason 'end', got %q", resp1.StopReason)
	}

	resp2, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "second"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp2.Content) != `{"b":2}` {
		t.Fatalf("expected {\"b\":2}, got %s", resp2.Content)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error from empty queue")
	}
	if !errors.Is(err, ErrMockExhausted) {
		t.Fatalf("expected ErrMockExhausted, got: %T", err)
	}
	if IsTransient(err) {
		t.Fatal("an exhausted mock must not look transient")
	}
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{}`)},
	)

	req := Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}
	_, _ = mock.Generate(context.Background(), req)

	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	if mock.Calls[0].System != "sys" {
		t.Fatalf("expected system 'sys', got %q", mock.Calls[0].System)
	}
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{RetryAfter: 0}},
	)

	_, err := mock.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T", err)
	}
}

func TestMockProvider_ModelID(t *testing.T) {
	mock := NewMockProvider()
	if mock.ModelID() != "mock" {
		t.Fatalf("expected 'mock', got %q", mock.ModelID())
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}

	ctx = WithPurpose(ctx, "explain-topic")
	if p := PurposeFrom(ctx); p != "explain-topic" {
		t.Fatalf("expected 'question-gen', got %q", p)
	}
}

func TestMockProvider_ValidatesAgainstSchema(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"wrong":true}`)})
	_, err := mock.Generate(context.Background(), Request{Schema: &Schema{
		Name: "mock-validate",
		Definition: map[string]any{
			"type":       "object",
			"properties": map[string]any{"answer": map[string]any{"type": "string"}},
			"required":   []any{"answer"},
		},
	}})
	if Classify(err) != KindValidationFailed {
		t.Fatalf("expected validation_failed, got %s", Classify(err))
	}
}

func TestAttemptContext(t *testing.T) {
	ctx := context.Background()
	if a := AttemptFrom(ctx); a.Tier != "" || a.Number != 0 {
		t.Fatalf("expected zero attempt, got %+v", a)
	}
	ctx = withAttempt(ctx, Attempt{Tier: "primary", Number: 2})
	if a := AttemptFrom(ctx); a.Tier != "primary" || a.Number != 2 {
		t.Fatalf("unexpected attempt %+v", a)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"rate limit", &ErrRateLimit{}, KindRateLimited},
		{"overloaded", &ErrOverloaded{}, KindOverloaded},
		{"timeout", &ErrTimeout{}, KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"invalid", &ErrInvalidResponse{}, KindValidationFailed},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMapStatusError(t *testing.T) {
	base := errors.New("upstream")
	tests := []struct {
		status int
		want   Kind
	}{
		{429, KindRateLimited},
		{503, KindOverloaded},
		{529, KindOverloaded},
		{504, KindTimeout},
		{408, KindTimeout},
		{500, KindUnknown},
		{400, KindUnknown},
	}
	for _, tt := range tests {
		if got := Classify(mapStatusError(tt.status, base)); got != tt.want {
			t.Errorf("status %d: got %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	retry := RetryConfig{MaxAttempts: 3, FallbackAttempts: 1}
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "anthropic without key",
			cfg:     Config{Primary: ProviderConfig{Provider: "anthropic"}, Retry: retry},
			wantErr: true,
		},
		{
			name:    "anthropic with key",
			cfg:     Config{Primary: ProviderConfig{Provider: "anthropic", APIKey: "sk-test"}, Retry: retry},
			wantErr: false,
		},
		{
			name:    "fallback without key",
			cfg:     Config{Primary: ProviderConfig{Provider: "mock"}, Fallback: &ProviderConfig{Provider: "openai"}, Retry: retry},
			wantErr: true,
		},
		{
			name:    "mock needs no key",
			cfg:     Config{Primary: ProviderConfig{Provider: "mock"}, Retry: retry},
			wantErr: false,
		},
		{
			name:    "speech on openai unsupported",
			cfg:     Config{Primary: ProviderConfig{Provider: "mock"}, Speech: ProviderConfig{Provider: "openai", APIKey: "k"}, Retry: retry},
			wantErr: true,
		},
		{
			name:    "zero attempts",
			cfg:     Config{Primary: ProviderConfig{Provider: "mock"}},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Primary: ProviderConfig{Provider: "unknown"}, Retry: retry},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
