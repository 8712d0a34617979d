// Package errors provides the error taxonomy for the romsync system.
// Errors are classified by how the reconciler must react to them:
// transient upstream failures are retried, protocol and local-store
// failures abort the pass, and conflicts trigger identity-map pruning.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's chain matches target.
// It's an alias for the standard library errors.Is.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// It's an alias for the standard library errors.As.
var As = errors.As

// Sentinel errors for the romsync system.
var (
	// ErrUpstreamUnavailable indicates a transient upstream failure.
	// Operations failing with it are eligible for reconciler-level retry.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamProtocol indicates a malformed upstream response. A
	// snapshot built from such a response cannot be trusted, so the
	// whole reconciliation pass aborts.
	ErrUpstreamProtocol = errors.New("upstream protocol error")

	// ErrUpstreamConflict indicates target-side state drift (the target
	// id no longer exists). It triggers identity-map pruning, not a
	// pass abort.
	ErrUpstreamConflict = errors.New("upstream conflict")

	// ErrLocalStore indicates the identity map is unreadable or
	// unwritable. The pass aborts: mutating the target without a
	// reliable map risks duplicate creation.
	ErrLocalStore = errors.New("identity store error")

	// ErrPassInProgress indicates another reconciliation pass holds the
	// pass lock for the same catalog pair.
	ErrPassInProgress = errors.New("reconciliation pass already in progress")

	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// UpstreamError represents a failed call against one of the two catalog
// upstreams. Its Is mapping decides how the reconciler treats the failure.
type UpstreamError struct {
	Upstream   string // "romm" or "emby"
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s (status %d) at %s: %s", e.Upstream, e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("upstream %s at %s: %s", e.Upstream, e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support, classifying the HTTP status into the
// reconciler's taxonomy.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrUpstreamConflict:
		return e.StatusCode == http.StatusNotFound ||
			e.StatusCode == http.StatusConflict ||
			e.StatusCode == http.StatusGone
	case ErrUpstreamUnavailable:
		// Transport-level failures carry no status code.
		return e.StatusCode == 0 ||
			e.StatusCode == http.StatusTooManyRequests ||
			e.StatusCode >= 500
	default:
		return false
	}
}

// NewUpstreamError creates an UpstreamError for an HTTP-level failure.
func NewUpstreamError(upstream, endpoint string, statusCode int, message string) *UpstreamError {
	return &UpstreamError{
		Upstream:   upstream,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ProtocolError represents a malformed response from an upstream.
type ProtocolError struct {
	Upstream string
	Endpoint string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error from %s at %s: %s", e.Upstream, e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrUpstreamProtocol
}

// StoreError represents a failed identity map store operation.
type StoreError struct {
	Op      string // "open", "load", "upsert", "remove"
	Message string
	Err     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("identity store %s: %s", e.Op, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *StoreError) Is(target error) bool {
	return target == ErrLocalStore
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Helper predicates for error checking.

// IsUnavailable checks if an error is a transient upstream failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

// IsProtocol checks if an error is an upstream protocol error.
func IsProtocol(err error) bool {
	return errors.Is(err, ErrUpstreamProtocol)
}

// IsConflict checks if an error is a target-side conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUpstreamConflict)
}

// IsStore checks if an error is an identity store failure.
func IsStore(err error) bool {
	return errors.Is(err, ErrLocalStore)
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Helper wrapping functions for common patterns.

// WrapUpstream wraps a transport-level error as an UpstreamError.
func WrapUpstream(upstream, endpoint string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{
		Upstream: upstream,
		Endpoint: endpoint,
		Message:  err.Error(),
		Err:      err,
	}
}

// WrapProtocol wraps a decode error as a ProtocolError.
func WrapProtocol(upstream, endpoint string, err error) error {
	if err == nil {
		return nil
	}
	return &ProtocolError{
		Upstream: upstream,
		Endpoint: endpoint,
		Message:  err.Error(),
		Err:      err,
	}
}

// WrapStore wraps an error as a StoreError.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Message: err.Error(), Err: err}
}
