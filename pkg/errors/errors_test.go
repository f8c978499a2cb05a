package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInquireError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *InquireError
		expected string
	}{
		{
			name:     "error without cause",
			err:      &InquireError{Code: CodeEmptyQuery, Message: "query text is empty"},
			expected: "EMPTY_QUERY: query text is empty",
		},
		{
			name: "error with cause",
			err: &InquireError{
				Code:    CodeExecutionFailed,
				Message: "query execution failed",
				Cause:   fmt.Errorf("relation \"orderz\" does not exist"),
			},
			expected: "EXECUTION_FAILED: query execution failed (caused by: relation \"orderz\" does not exist)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestInquireError_Is(t *testing.T) {
	err1 := &InquireError{Code: CodeExecutionFailed, Message: "a"}
	err2 := &InquireError{Code: CodeExecutionFailed, Message: "b"}
	err3 := &InquireError{Code: CodeEmptyQuery, Message: "c"}

	assert.True(t, err1.Is(err2), "errors with same code should match")
	assert.False(t, err1.Is(err3), "errors with different codes should not match")
	assert.False(t, err1.Is(fmt.Errorf("plain")))
	assert.True(t, errors.Is(fmt.Errorf("outer: %w", err1), ErrExecutionFailed))
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")

	wrapped := Wrap(cause, CodeExecutionFailed, "query execution failed")
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.Equal(t, CodeExecutionFailed, GetCode(wrapped))
	assert.Equal(t, "query execution failed", GetMessage(wrapped))
	assert.Equal(t, cause, RootCause(wrapped))

	assert.Nil(t, Wrap(nil, CodeExecutionFailed, "ignored"))
	assert.Nil(t, Wrapf(nil, CodeExecutionFailed, "ignored %d", 1))

	formatted := Wrapf(cause, CodeSchemaFetchFailed, "columns for %s", "orders")
	assert.Equal(t, "columns for orders", formatted.Message)
}

func TestCodeHelpers(t *testing.T) {
	plain := fmt.Errorf("plain")

	assert.Equal(t, CodeInternal, GetCode(plain))
	assert.Equal(t, "plain", GetMessage(plain))
	assert.True(t, IsInvalidRequest(New(CodeInvalidRequest, "bad")))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", New(CodeNotFound, "missing"))))
	assert.False(t, HasCode(plain, CodeInternal))
}

func TestWithDetail(t *testing.T) {
	err := New(CodeInvalidRequest, "invalid order").
		WithDetail("field", "items").
		WithDetail("index", 2)

	assert.Equal(t, map[string]interface{}{"field": "items", "index": 2}, err.Details)
}
