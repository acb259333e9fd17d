package client

import (
	"fmt"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/catalog"
)

// ErrorClass represents a classification of gateway failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport failures (connection refused, reset, DNS).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassStatus represents non-2xx HTTP responses.
	ErrorClassStatus ErrorClass = "status"

	// ErrorClassDecode represents malformed response bodies.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassRequest represents requests that could not be built or sent.
	ErrorClassRequest ErrorClass = "request"

	// ErrorClassTimeout represents calls that hit the per-call deadline.
	ErrorClassTimeout ErrorClass = "timeout"
)

// GatewayError is a failed catalog API call.
type GatewayError struct {
	Action     string
	Class      ErrorClass
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("catalog %s %s error", e.Action, e.Class)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when the catalog API does not answer within the
// configured per-call timeout.
type TimeoutError struct {
	Action  string
	Timeout time.Duration
	Err     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("catalog %s timed out after %s", e.Action, e.Timeout)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// PartialResultError is returned when detail hydration does not yield exactly
// one record per requested identifier.
type PartialResultError struct {
	Requested int
	Returned  int
	Missing   []catalog.ProductID
}

// Error implements the error interface.
func (e *PartialResultError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("catalog get_items returned %d of %d requested products (missing %v)",
			e.Returned, e.Requested, e.Missing)
	}
	return fmt.Sprintf("catalog get_items returned %d of %d requested products",
		e.Returned, e.Requested)
}
