// Package apperr defines the error codes surfaced to request/response callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a caller-visible error classification.
type Code string

const (
	CodeUnauthenticated   Code = "unauthenticated"
	CodeInvalidArgument   Code = "invalid-argument"
	CodeNotFound          Code = "not-found"
	CodePermissionDenied  Code = "permission-denied"
	CodeResourceExhausted Code = "resource-exhausted"
	CodeInternal          Code = "internal"
)

// Error is an explicit rejection carrying a Code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Unauthenticated rejects a caller without identity.
func Unauthenticated() *Error {
	return New(CodeUnauthenticated, "authentication required")
}

// InvalidArgument rejects malformed input.
func InvalidArgument(format string, args ...any) *Error {
	return New(CodeInvalidArgument, fmt.Sprintf(format, args...))
}

// PermissionDenied rejects an authenticated caller.
func PermissionDenied(message string) *Error {
	return New(CodePermissionDenied, message)
}

// ResourceExhausted rejects a caller over quota.
func ResourceExhausted(message string) *Error {
	return New(CodeResourceExhausted, message)
}

// Internal wraps a downstream failure.
func Internal(message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, Err: err}
}

// CodeOf extracts the Code of err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a Code to its HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON shape of a rejected request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the code and a caller-safe message.
type ErrorDetail struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Response returns the HTTP status and body for err. Internal errors never
// expose their cause.
func Response(err error) (int, ErrorBody) {
	var e *Error
	if !errors.As(err, &e) || e.Code == CodeInternal {
		return http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{
			Code:    CodeInternal,
			Message: "internal error",
		}}
	}
	return HTTPStatus(e.Code), ErrorBody{Error: ErrorDetail{Code: e.Code, Message: e.Message}}
}
