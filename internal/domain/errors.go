package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals an empty or malformed question or category id.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAuthMissing signals that no API credential is available for an upstream model call.
	ErrAuthMissing = errors.New("api key missing")
	// ErrUpstreamUnavailable signals a network failure or non-2xx response from ABS or the model API.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedResponse signals an upstream payload that fails to parse as the expected format.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// UpstreamError wraps ErrUpstreamUnavailable with the upstream status and body for diagnostics.
type UpstreamError struct {
	Upstream string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s error %d: %s", e.Upstream, e.Status, e.Body)
	}
	return fmt.Sprintf("%s error %d", e.Upstream, e.Status)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstreamUnavailable }

// NewUpstreamError creates an upstream failure carrying the status and response body.
func NewUpstreamError(upstream string, status int, body string) error {
	return &UpstreamError{Upstream: upstream, Status: status, Body: body}
}
