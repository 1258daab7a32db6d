// Package errorx carries business error codes through the service and handler layers.
// Every error returned by a repository or service is a *CodeError (possibly wrapping a
// lower-level cause), so handlers can map it to a response without string matching.
package errorx

import (
	"errors"
	"fmt"
	"net/http"
)

// CodeError is an error with a business code.
// It supports %w-style wrapping and is recognised by errors.Is/errors.As.
type CodeError struct {
	Code  int    // business code
	Msg   string // user facing message
	cause error  // wrapped lower-level error
}

// Error renders "msg: cause" when a cause is present, otherwise the message.
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap exposes the cause to errors.Is/errors.As.
func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is matches two CodeErrors by code, so errors.Is(err, ErrNotEligible) works on wrapped copies.
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// New creates a CodeError.
func New(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// Newf creates a CodeError with a formatted message.
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap attaches a code and a message to err.
// Usage: errorx.Wrap(err, CodeNotFound, "user not found")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   msg,
		cause: err,
	}
}

// Wrapf attaches a code and a formatted message to err.
// Usage: errorx.Wrapf(err, CodeNotFound, "user %d not found", userID)
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// GetCode extracts the business code from err, or CodeServerBusy for foreign errors.
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// Business codes.
const (
	CodeSuccess         = 1000 // success
	CodeInvalidParam    = 1001 // validation error: malformed or empty input
	CodeUserExist       = 1002 // email already registered
	CodeUserNotExist    = 1003 // user not found
	CodeInvalidPassword = 1004 // bad credentials
	CodeServerBusy      = 1005 // unclassified failure
	CodeUnauthorized    = 1006 // missing or invalid token
	CodeForbidden       = 1007 // authorization error: not participant, not sender, not admin
	CodeNotFound        = 1008 // dangling id
	CodeConflict        = 1009 // unique constraint hit, duplicate request
	CodeDBError         = 1010 // transient store error
	CodeCacheError      = 1011 // cache failure
	CodeNotEligible     = 1012 // eligibility error: blocked or not friends
)

// Predefined errors, usable both as return values and as errors.Is targets.
var (
	ErrInvalidParam = New(CodeInvalidParam, "invalid request parameters")
	ErrServerBusy   = New(CodeServerBusy, "server busy")
	ErrForbidden    = New(CodeForbidden, "forbidden")
	ErrNotEligible  = New(CodeNotEligible, "messaging not allowed with this user")
)

// HTTPStatus maps a business code to the HTTP status returned by handlers.
func HTTPStatus(code int) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeInvalidPassword:
		return http.StatusUnauthorized
	case CodeForbidden, CodeNotEligible:
		return http.StatusForbidden
	case CodeNotFound, CodeUserNotExist:
		return http.StatusNotFound
	case CodeConflict, CodeUserExist:
		return http.StatusConflict
	case CodeDBError, CodeCacheError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound reports whether err is a not-found error (including gorm.ErrRecordNotFound text).
func IsNotFound(err error) bool {
	var codeErr *CodeError
	if errors.As(err, &codeErr) && (codeErr.Code == CodeNotFound || codeErr.Code == CodeUserNotExist) {
		return true
	}
	return err != nil && err.Error() == "record not found"
}

// IsConflict reports whether err came from a unique constraint or a duplicate request.
func IsConflict(err error) bool {
	return GetCode(err) == CodeConflict
}
