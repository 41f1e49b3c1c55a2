// Package errors provides structured error types for nodecalc.
//
// Every failure raised while compiling an expression into host nodes is a
// programmer-visible usage error: it is returned synchronously, it is never
// retried, and it carries a machine-readable code so callers (CLI, HTTP API,
// tests) can branch on the category without parsing messages.
//
// # Error Codes
//
// Codes fall into a few groups:
//   - Expression errors: UNKNOWN_OPERATION, ARITY, DIMENSION_MISMATCH,
//     AMBIGUOUS_CONNECTION, INVALID_DESTINATION, UNSUPPORTED_SOURCE_TYPE,
//     UNSUPPORTED_TYPE, INDEX_OUT_OF_RANGE
//   - Session errors: NESTED_TRACE
//   - Registry errors: OPERATOR_COLLISION, INVALID_OPERATOR
//   - Host errors: INVALID_NODE_TYPE, INVALID_ATTRIBUTE, NOT_FOUND
//   - Input errors: INVALID_INPUT, INVALID_CONFIG, SCRIPT_SYNTAX, FILE_NOT_FOUND
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownOperation, "unknown operation %q", name)
//	if errors.Is(err, errors.ErrCodeUnknownOperation) {
//	    // Handle the misspelled operation
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidConfig, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Expression errors
	ErrCodeUnknownOperation      Code = "UNKNOWN_OPERATION"
	ErrCodeArity                 Code = "ARITY"
	ErrCodeDimensionMismatch     Code = "DIMENSION_MISMATCH"
	ErrCodeAmbiguousConnection   Code = "AMBIGUOUS_CONNECTION"
	ErrCodeInvalidDestination    Code = "INVALID_DESTINATION"
	ErrCodeUnsupportedSourceType Code = "UNSUPPORTED_SOURCE_TYPE"
	ErrCodeUnsupportedType       Code = "UNSUPPORTED_TYPE"
	ErrCodeIndexOutOfRange       Code = "INDEX_OUT_OF_RANGE"

	// Tracer errors
	ErrCodeNestedTrace Code = "NESTED_TRACE"

	// Operator registry errors
	ErrCodeOperatorCollision Code = "OPERATOR_COLLISION"
	ErrCodeInvalidOperator   Code = "INVALID_OPERATOR"

	// Host errors
	ErrCodeInvalidNodeType  Code = "INVALID_NODE_TYPE"
	ErrCodeInvalidAttribute Code = "INVALID_ATTRIBUTE"
	ErrCodeNotFound         Code = "NOT_FOUND"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeScriptSyntax  Code = "SCRIPT_SYNTAX"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error code onto the status the HTTP API answers with.
// Malformed requests are 400, missing resources 404, calculator errors such
// as an unknown operation 422, and uncoded or internal errors 500.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeNotFound, ErrCodeFileNotFound:
		return 404
	case ErrCodeInvalidInput, ErrCodeInvalidConfig, ErrCodeScriptSyntax:
		return 400
	case ErrCodeInternal, "":
		return 500
	default:
		return 422
	}
}
