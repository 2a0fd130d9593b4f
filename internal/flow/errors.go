package flow

import (
	"errors"
	"fmt"

	"github.com/abhisek/studypal/internal/llm"
)

// Kind is the terminal failure class of a flow.
type Kind string

const (
	KindValidationFailed Kind = "validation_failed"
	KindOverloaded       Kind = "overloaded"
	KindRateLimited      Kind = "rate_limited"
	KindTimeout          Kind = "timeout"
	KindCountMismatch    Kind = "count_mismatch"
	KindInvalidInput     Kind = "invalid_input"
	KindUnknown          Kind = "unknown"
)

// Error is the tagged failure every flow returns instead of a result.
type Error struct {
	Kind     Kind
	Flow     string
	Message  string
	Attempts int // model calls made, zero when rejected before any call
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %s: %v", e.Flow, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Flow, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the flow error kind of err, or KindUnknown when err is not
// a flow error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// fromModel converts a failed model call into a flow error.
func fromModel(flowName string, err error, attempts int) *Error {
	kind := KindUnknown
	switch llm.Classify(err) {
	case llm.KindValidationFailed:
		kind = KindValidationFailed
	case llm.KindOverloaded:
		kind = KindOverloaded
	case llm.KindRateLimited:
		kind = KindRateLimited
	case llm.KindTimeout:
		kind = KindTimeout
	}
	return &Error{Kind: kind, Flow: flowName, Message: err.Error(), Attempts: attempts, Err: err}
}
