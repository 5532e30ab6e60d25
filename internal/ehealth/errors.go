package ehealth

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx reply from the eHealth API. Code carries the HTTP
// status used by the failure-recovery classification.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ehealth: request failed with status %d", e.Code)
	}
	return fmt.Sprintf("ehealth: %s (status %d)", e.Message, e.Code)
}

// actorRetryable is the fixed set of statuses recoverable by switching to
// a different authenticated actor: expired auth, forbidden, rate-limited.
var actorRetryable = map[int]bool{
	http.StatusUnauthorized:    true,
	http.StatusForbidden:       true,
	http.StatusTooManyRequests: true,
}

// IsActorRetryable reports whether err is an API error that a different
// actor's token could fix. These are never retried as the same job.
func IsActorRetryable(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return actorRetryable[apiErr.Code]
}

// IsValidation reports whether err is a 422 remote validation failure.
// Those halt the pipeline for the page and surface to the user; no retry
// can fix the payload.
func IsValidation(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusUnprocessableEntity
}
