// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeValidation    ErrorType = iota // Input validation errors (400 Bad Request)
	ErrorTypeNotFound                       // Resource not found errors (404 Not Found)
	ErrorTypeConflict                       // Resource conflict errors (409 Conflict)
	ErrorTypeInternal                       // Internal server errors (500 Internal Server Error)
	ErrorTypeUnavailable                    // Service unavailable errors (503 Service Unavailable)
	ErrorTypeForbidden                      // Caller does not own the resource (403 Forbidden)
	ErrorTypeRateLimited                    // Provider asked us to back off (429 Too Many Requests)
	ErrorTypeUpstream                       // Provider call failed (502 Bad Gateway)
	ErrorTypeNotReady                       // Provider has not produced the resource yet (202 Accepted)
	ErrorTypeConfiguration                  // Service is missing required configuration (503 Service Unavailable)
)

// DomainError represents an error with semantic type information
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// RateLimitedError is returned while the provider backoff window is open.
type RateLimitedError struct {
	RetryAfter time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("provider rate limit in effect until %s", e.RetryAfter.UTC().Format(time.RFC3339))
}

// UpstreamError describes a failed call to the provider API.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider request failed (status %d): %s", e.Status, e.Message)
	}
	return "provider request failed: " + e.Message
}

var (
	// ErrMissingCredential is returned when no usable provider API key is configured.
	ErrMissingCredential = NewConfigurationError("provider API key is not configured")

	// ErrTranscriptNotReady is returned when the provider has not finished processing a transcript.
	ErrTranscriptNotReady = NewNotReadyError("transcript is not ready yet")
)

// GetErrorType returns the semantic type of an error
func GetErrorType(err error) ErrorType {
	var rateLimited *RateLimitedError
	if errors.As(err, &rateLimited) {
		return ErrorTypeRateLimited
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return ErrorTypeUpstream
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal // default fallback
}

// Error constructors for different types
func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}

func NewForbiddenError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeForbidden, Message: message, Err: errors.Join(err...)}
}

func NewNotReadyError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotReady, Message: message, Err: errors.Join(err...)}
}

func NewConfigurationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConfiguration, Message: message, Err: errors.Join(err...)}
}
