package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s API error %d (%s): %s", e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// QuotaError is returned by the gateway when the last tier in the
// preference list failed for quota reasons.
type QuotaError struct {
	Tier Tier
	Err  error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exhausted on tier %s: %v", e.Tier, e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

// quotaMarkers are lower-cased substrings that identify rate/capacity failures.
var quotaMarkers = []string{
	"429",
	"quota",
	"rate limit",
	"rate_limit",
	"too many requests",
	"exceeded",
	"resource_exhausted",
}

// IsQuotaError reports whether err is a rate or capacity failure rather
// than a genuine request error.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	// "context deadline exceeded" would otherwise match the "exceeded" marker.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var qe *QuotaError
	if errors.As(err, &qe) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
