// internal/domain/entity/errors.go
package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrProvider indicates the lock API answered with a non-success status
	ErrProvider = errors.New("provider error")

	// ErrTransport indicates the lock API could not be reached or read
	ErrTransport = errors.New("transport error")

	// ErrSourceShape indicates an extract lacks a required column
	ErrSourceShape = errors.New("source shape error")

	// ErrRunInProgress indicates a sync run was requested while one is running
	ErrRunInProgress = errors.New("sync run already in progress")
)

// ProviderError is a non-success status reported by the lock API
type ProviderError struct {
	Endpoint string
	LockID   int64
	Page     int
	Code     int
	Message  string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return fmt.Sprintf("lock API %s (lock %d, page %d) returned errcode %d: %s", e.Endpoint, e.LockID, e.Page, e.Code, e.Message)
}

// Is implements errors.Is support
func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// TransportError wraps a failure to call or decode the lock API
type TransportError struct {
	Endpoint string
	Timeout  bool
	Err      error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("lock API %s timed out: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("lock API %s: %v", e.Endpoint, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// MissingColumnError reports a required column absent from an extract
type MissingColumnError struct {
	Extract string
	Column  string
}

// Error implements the error interface
func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s extract is missing required column %q", e.Extract, e.Column)
}

// Is implements errors.Is support
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrSourceShape
}
