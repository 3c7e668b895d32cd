// Package apperr provides the tagged-variant error type shared by every
// layer of paycore. Business errors are never raised as exceptions; each
// kind is a Code value on a plain *Error that callers can switch on.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a stable, externally-visible error kind.
type Code string

const (
	CodeInvalidRequest       Code = "INVALID_REQUEST"
	CodeNotFound             Code = "NOT_FOUND"
	CodeInactiveWallet       Code = "INACTIVE_WALLET"
	CodeInsufficientFunds    Code = "INSUFFICIENT_FUNDS"
	CodeConcurrentInProgress Code = "CONCURRENT_IN_PROGRESS"
	CodeVersionConflict      Code = "VERSION_CONFLICT"
	CodeConflict             Code = "CONFLICT"
	CodeValidation           Code = "VALIDATION_FAILED"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeUnavailable          Code = "UNAVAILABLE"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is the common error envelope returned by every paycore component.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}

	// wrapped is the underlying cause, if any. Kept private so callers
	// compare on Code rather than string-matching wrapped errors.
	wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap allows errors.Is/As to reach the underlying cause.
func (e *Error) Unwrap() error {
	return e.wrapped
}

// WithDetails attaches structured detail fields and returns the receiver.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// HTTPStatusCode maps the error kind to a transport-level status code.
func (e *Error) HTTPStatusCode() int {
	switch e.Code {
	case CodeInvalidRequest, CodeValidation, CodeInsufficientFunds:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeConcurrentInProgress, CodeVersionConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Is allows errors.Is(err, apperr.New(code, "")) to match on Code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func BadRequest(message string) *Error {
	return New(CodeInvalidRequest, message)
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// NotFoundWithID builds a not-found error naming the resource and id.
func NotFoundWithID(resource, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found: %s", resource, id)).WithDetails(map[string]interface{}{
		"resource": resource,
		"id":       id,
	})
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

func Unavailable(message string) *Error {
	return New(CodeUnavailable, message)
}

func Internal(message string) *Error {
	return New(CodeInternal, message)
}

// DatabaseWrap wraps a database-layer error as an internal error while
// preserving the original for logging via errors.Unwrap.
func DatabaseWrap(err error, message string) *Error {
	e := New(CodeInternal, message)
	e.wrapped = err
	return e
}

// InsufficientFunds builds the InsufficientFunds error with the
// {available, required} detail pair spec'd in spec.md §7.
func InsufficientFunds(available, required string) *Error {
	return New(CodeInsufficientFunds, "insufficient funds").WithDetails(map[string]interface{}{
		"available": available,
		"required":  required,
	})
}

// ConcurrentInProgress builds the ConcurrentInProgress error for lease
// contention or an in-flight PENDING/PROCESSING row.
func ConcurrentInProgress(message string) *Error {
	return New(CodeConcurrentInProgress, message)
}

// VersionConflictErr builds the optimistic-lock conflict error.
func VersionConflictErr(message string) *Error {
	return New(CodeVersionConflict, message)
}

// InactiveWallet builds the InactiveWallet error naming the offending side.
func InactiveWallet(which, walletID string) *Error {
	return New(CodeInactiveWallet, fmt.Sprintf("%s wallet is not active: %s", which, walletID)).WithDetails(map[string]interface{}{
		"wallet_id": walletID,
		"side":      which,
	})
}

// As is a convenience wrapper around errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
