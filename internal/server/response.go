package server

import (
	"errors"
	"net/http"

	"github.com/abhisek/studypal/internal/flow"
	"github.com/abhisek/studypal/internal/store"
	"github.com/abhisek/studypal/internal/tutor"
	"github.com/gin-gonic/gin"
)

// APIError is the body of every error response.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps APIError as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// statusFor maps a service error to an HTTP status, error code and a
// message safe to show to users.
func statusFor(err error) (int, string, string) {
	var fe *flow.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case flow.KindInvalidInput:
			return http.StatusBadRequest, "invalid_input", fe.Message
		case flow.KindRateLimited:
			return http.StatusTooManyRequests, "rate_limited", "slow down"
		case flow.KindOverloaded:
			return http.StatusServiceUnavailable, "overloaded", "service busy, try later"
		case flow.KindTimeout:
			return http.StatusGatewayTimeout, "timeout", "the model took too long, try again"
		case flow.KindValidationFailed, flow.KindCountMismatch:
			return http.StatusBadGateway, "generation_failed", "please try again"
		}
	}

	var perr *tutor.PaymentError
	var serr *store.Error
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, tutor.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid_signature", err.Error()
	case errors.Is(err, tutor.ErrPaymentsDisabled):
		return http.StatusNotImplemented, "payments_disabled", err.Error()
	case errors.As(err, &perr):
		return http.StatusBadGateway, "payment_failed", "payment gateway error, try again"
	case errors.As(err, &serr):
		return http.StatusBadGateway, "storage_failed", "storage unavailable, try again"
	}
	return http.StatusInternalServerError, "internal", "something went wrong"
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "code", code, "error", err)
	}
	_ = c.Error(err)
	respondError(c, status, code, msg)
}
