package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Kind is the failure class of a model invocation.
type Kind string

const (
	KindValidationFailed Kind = "validation_failed"
	KindOverloaded       Kind = "overloaded"
	KindRateLimited      Kind = "rate_limited"
	KindTimeout          Kind = "timeout"
	KindUnknown          Kind = "unknown"
)

// ErrRateLimit indicates the provider throttled the caller (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// Violation is a single failed schema constraint.
type Violation struct {
	Path    string // JSON pointer into the response, "/" for the root
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("at %s: %s", v.Path, v.Message)
}

// ErrInvalidResponse indicates the LLM returned content that does not
// conform to the requested schema.
type ErrInvalidResponse struct {
	Content    json.RawMessage
	Violations []Violation
	Err        error
}

func (e *ErrInvalidResponse) Error() string {
	if len(e.Violations) > 0 {
		parts := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			parts[i] = v.String()
		}
		return fmt.Sprintf("invalid LLM response: %s", strings.Join(parts, "; "))
	}
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrOverloaded indicates the provider is out of capacity (503/529 or an
// explicit "overloaded" signal).
type ErrOverloaded struct {
	Err error
}

func (e *ErrOverloaded) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider overloaded: %v", e.Err)
	}
	return "LLM provider overloaded"
}

func (e *ErrOverloaded) Unwrap() error { return e.Err }

// ErrTimeout indicates the request did not complete in time at the
// network level.
type ErrTimeout struct {
	Err error
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("LLM request timed out: %v", e.Err)
}

func (e *ErrTimeout) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the response was truncated because it
// hit the MaxTokens limit.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// Classify maps an invocation error to its failure class.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var inv *ErrInvalidResponse
	if errors.As(err, &inv) {
		return KindValidationFailed
	}
	var rl *ErrRateLimit
	if errors.As(err, &rl) {
		return KindRateLimited
	}
	var ov *ErrOverloaded
	if errors.As(err, &ov) {
		return KindOverloaded
	}
	var to *ErrTimeout
	if errors.As(err, &to) {
		return KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// IsTransient reports whether a failure is worth retrying after a pause.
func IsTransient(err error) bool {
	switch Classify(err) {
	case KindOverloaded, KindTimeout:
		return true
	}
	return false
}

// mapStatusError converts a provider HTTP status into a typed error.
// Statuses without a dedicated class fall through to mapTransportError.
func mapStatusError(status int, err error) error {
	switch status {
	case http.StatusTooManyRequests:
		return &ErrRateLimit{Err: err}
	case http.StatusServiceUnavailable, 529: // 529: Anthropic "overloaded_error"
		return &ErrOverloaded{Err: err}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &ErrTimeout{Err: err}
	}
	return mapTransportError(err)
}

// mapTransportError classifies errors that carry no HTTP status.
func mapTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ErrTimeout{Err: err}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "overloaded") || strings.Contains(msg, "503") {
		return &ErrOverloaded{Err: err}
	}
	return err
}
