// Package errors provides coded domain errors shared across services.
//
// Services translate infrastructure sentinels (pkg/platform/sentinel) and
// validation failures into coded errors; transport layers map codes onto
// HTTP statuses without inspecting error strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for propagation and transport mapping.
type Code string

const (
	// CodeNotFound: the referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeAlreadyExists: a create collided with an existing entity.
	CodeAlreadyExists Code = "already_exists"
	// CodeUnauthorized: the caller lacks the required role, or the entity's
	// status forbids the action for this caller.
	CodeUnauthorized Code = "unauthorized"
	// CodeInvalidInput: non-positive amount, malformed range, bad decimals
	// or supply, and similar input validation failures.
	CodeInvalidInput Code = "invalid_input"
	// CodeArithmeticFault: checked balance/supply math overflowed. The whole
	// call aborts; nothing wraps silently.
	CodeArithmeticFault Code = "arithmetic_fault"
	// CodeRestrictionViolation: a whitelist, accreditation, or geography
	// rule blocked the transfer.
	CodeRestrictionViolation Code = "restriction_violation"
	// CodeStateConflict: the entity's current status does not permit the
	// requested transition.
	CodeStateConflict Code = "state_conflict"
	// CodeBadRequest: malformed request at the transport boundary.
	CodeBadRequest Code = "bad_request"
	// CodeInternal: unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Compare with HasCode rather than string
// matching; the message is for operators, the code is the contract.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, preserving the cause chain.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// Is is a convenience alias for HasCode, matching call-site reading order.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code on err, or CodeInternal when err carries
// no code at all.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HTTPStatus maps a domain error onto the HTTP status the transport layer
// should respond with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeStateConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeRestrictionViolation:
		return http.StatusUnprocessableEntity
	case CodeArithmeticFault:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
