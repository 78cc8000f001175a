package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ziadkadry99/qnagen/internal/llm"
)

// ValidationError reports a bad request field or a missing prior-stage output.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UserMessage turns a run error into text safe to show an end user.
// Raw provider messages are never exposed.
func UserMessage(err error) string {
	var ve *ValidationError
	var qe *llm.QuotaError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &qe):
		return "The generation service is over capacity right now. Please try again later."
	case errors.Is(err, context.DeadlineExceeded):
		return "Generation took too long and was stopped. Please try again."
	case errors.Is(err, context.Canceled):
		return "Generation was cancelled."
	default:
		return "Content generation failed. Please try again."
	}
}

// HTTPStatus maps a run error to a response status code.
func HTTPStatus(err error) int {
	var qe *llm.QuotaError
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidationError(err):
		return http.StatusBadRequest
	case errors.As(err, &qe):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
