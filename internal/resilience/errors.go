package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrPermanent marks a failure that must not be retried
var ErrPermanent = errors.New("permanent failure")

// ErrCircuitOpen is returned while a key's circuit breaker rejects calls
var ErrCircuitOpen = fmt.Errorf("circuit breaker open: %w", ErrPermanent)

// ErrRateLimited is returned when the call budget for a key ran out before the call was made
var ErrRateLimited = fmt.Errorf("rate limit exceeded: %w", ErrPermanent)

// IsLocalRejection reports whether err was produced by the guard without calling the upstream
func IsLocalRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRateLimited)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() []error { return []error{e.err, ErrPermanent} }

// Permanent wraps err so that Retry gives up immediately
func Permanent(err error) error {
	if err == nil || errors.Is(err, ErrPermanent) {
		return err
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked permanent
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// StatusError is an upstream response with a non-2xx status code
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s responded with status %d: %s", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s responded with status %d", e.Service, e.StatusCode)
}

// Retryable reports whether the status is worth another attempt
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// NewStatusError builds a StatusError, marking 4xx responses other than 429 as permanent
func NewStatusError(service string, statusCode int, body string) error {
	err := &StatusError{Service: service, StatusCode: statusCode, Body: body}
	if !err.Retryable() {
		return Permanent(err)
	}
	return err
}

// Retryable classifies an error returned by a single attempt.
// Transport failures, per-attempt timeouts and 5xx/429 statuses are retried.
func Retryable(err error) bool {
	if err == nil || IsPermanent(err) || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	return true
}
