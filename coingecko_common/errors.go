package coingecko_common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind is the category of a failed upstream price request
type ErrorKind string

const (
	// ErrorKindTimeout the attempt exceeded its time budget
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindRateLimited upstream answered 429 or reported error_code 429 in the body
	ErrorKindRateLimited ErrorKind = "rate_limited"
	// ErrorKindUpstreamFailure any other non-200 status, malformed body or transport failure
	ErrorKindUpstreamFailure ErrorKind = "upstream_failure"
	// ErrorKindProxyEnvelope the relay answered without the expected envelope field
	ErrorKindProxyEnvelope ErrorKind = "proxy_envelope"
	// ErrorKindStoreUnavailable the shared cache or lock store could not be reached
	ErrorKindStoreUnavailable ErrorKind = "store_unavailable"
)

// PriceError is a classified upstream failure
type PriceError struct {
	Kind       ErrorKind
	StatusCode int
	Retryable  bool
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *PriceError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PriceError) Unwrap() error {
	return e.Cause
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(cause error) *PriceError {
	return &PriceError{
		Kind:      ErrorKindTimeout,
		Retryable: true,
		Message:   "request timed out",
		Cause:     cause,
	}
}

// NewRateLimitError creates a rate limit error, never retried
func NewRateLimitError(statusCode int, message string) *PriceError {
	return &PriceError{
		Kind:       ErrorKindRateLimited,
		Retryable:  false,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewUpstreamError creates an upstream failure, retryable for 5xx only
func NewUpstreamError(statusCode int, message string, cause error) *PriceError {
	return &PriceError{
		Kind:       ErrorKindUpstreamFailure,
		Retryable:  statusCode >= http.StatusInternalServerError,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// NewProxyEnvelopeError creates an error for a relay response without its envelope
func NewProxyEnvelopeError(message string, cause error) *PriceError {
	return &PriceError{
		Kind:    ErrorKindProxyEnvelope,
		Message: message,
		Cause:   cause,
	}
}

// NewStoreUnavailableError creates an error for an unreachable cache store
func NewStoreUnavailableError(cause error) *PriceError {
	return &PriceError{
		Kind:    ErrorKindStoreUnavailable,
		Message: "cache store unavailable",
		Cause:   cause,
	}
}

// ClassifyStatus classifies a non-200 HTTP status code
func ClassifyStatus(statusCode int, body []byte) *PriceError {
	if statusCode == http.StatusTooManyRequests {
		return NewRateLimitError(statusCode, "rate limit exceeded")
	}
	return NewUpstreamError(statusCode, fmt.Sprintf("unexpected status: %s", truncateBody(body)), nil)
}

// ClassifyTransportError classifies an error returned by http.Client.Do
func ClassifyTransportError(err error) *PriceError {
	var priceErr *PriceError
	if errors.As(err, &priceErr) {
		return priceErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}
	return NewUpstreamError(0, "request failed", err)
}

// KindOf returns the kind of err, or "" if it is not a PriceError
func KindOf(err error) ErrorKind {
	var priceErr *PriceError
	if errors.As(err, &priceErr) {
		return priceErr.Kind
	}
	return ""
}

// IsKind reports whether err is a PriceError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether another attempt may succeed
func IsRetryable(err error) bool {
	var priceErr *PriceError
	if errors.As(err, &priceErr) {
		return priceErr.Retryable
	}
	return false
}

func truncateBody(body []byte) string {
	const maxLen = 200
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}
	return string(body)
}
