// Package errors provides the coded error type shared by the inquire pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeNotFound          = "NOT_FOUND"
	CodeEmptyQuery        = "EMPTY_QUERY"
	CodeExecutionFailed   = "EXECUTION_FAILED"
	CodeGenerationFailed  = "GENERATION_FAILED"
	CodeSchemaFetchFailed = "SCHEMA_FETCH_FAILED"
	CodeTransactionFailed = "TRANSACTION_FAILED"
	CodeConnectionFailed  = "CONNECTION_FAILED"
	CodeInternal          = "INTERNAL_ERROR"
	CodeUnavailable       = "UNAVAILABLE"
	CodeUnauthorized      = "UNAUTHORIZED"
)

// InquireError carries a stable code, a human message and an optional cause.
type InquireError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *InquireError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *InquireError) Unwrap() error {
	return e.Cause
}

// Is matches on code only.
func (e *InquireError) Is(target error) bool {
	t, ok := target.(*InquireError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a single detail to the error.
func (e *InquireError) WithDetail(key string, value interface{}) *InquireError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common errors
var (
	ErrEmptyQuery            = &InquireError{Code: CodeEmptyQuery, Message: "query text is empty"}
	ErrGenerationFailed      = &InquireError{Code: CodeGenerationFailed, Message: "query generation failed"}
	ErrGenerationUnavailable = &InquireError{Code: CodeUnavailable, Message: "text completion is not configured"}
	ErrExecutionFailed       = &InquireError{Code: CodeExecutionFailed, Message: "query execution failed"}
	ErrSchemaFetchFailed     = &InquireError{Code: CodeSchemaFetchFailed, Message: "schema introspection failed"}
	ErrInvalidOrder          = &InquireError{Code: CodeInvalidRequest, Message: "invalid order"}
	ErrConnectionFailed      = &InquireError{Code: CodeUnavailable, Message: "database connection failed"}
)

// New creates a new InquireError with the given code and message.
func New(code, message string) *InquireError {
	return &InquireError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps err with a code and message. It returns nil for a nil err.
func Wrap(err error, code, message string) *InquireError {
	if err == nil {
		return nil
	}
	return &InquireError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *InquireError {
	if err == nil {
		return nil
	}
	return &InquireError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code string) bool {
	var ie *InquireError
	if errors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}

// IsInvalidRequest checks if an error is an invalid request error.
func IsInvalidRequest(err error) bool {
	return HasCode(err, CodeInvalidRequest)
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var ie *InquireError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return CodeInternal
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var ie *InquireError
	if errors.As(err, &ie) {
		return ie.Message
	}
	return err.Error()
}

// RootCause follows the Unwrap chain to the innermost error.
func RootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}
