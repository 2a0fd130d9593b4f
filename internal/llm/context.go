package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	attemptKey contextKey = "llm_attempt"
)

// WithPurpose attaches a purpose label to the context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// Attempt identifies one controller attempt.
type Attempt struct {
	Tier   string
	Number int
}

func withAttempt(ctx context.Context, a Attempt) context.Context {
	return context.WithValue(ctx, attemptKey, a)
}

// AttemptFrom returns the tier and attempt number set by the fallback
// controller, or the zero Attempt outside of one.
func AttemptFrom(ctx context.Context) Attempt {
	a, _ := ctx.Value(attemptKey).(Attempt)
	return a
}
