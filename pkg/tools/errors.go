package tools

import (
	"errors"
	"fmt"
)

// JSON-RPC error codes. The first four are fixed by the protocol; upstream
// and timeout use the implementation-defined server range.
const (
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeUpstream       = -32000
	CodeTimeout        = -32001
)

// FieldError is one schema validation failure.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is the typed failure every tool call resolves to. It crosses the
// transport boundary as a JSON-RPC error object or an HTTP error body.
type Error struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("tool error %d: %s", e.Code, e.Message)
}

// NewMethodNotFound reports an unknown tool name.
func NewMethodNotFound(name string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown tool %q", name)}
}

// NewInvalidParams reports schema validation failures.
func NewInvalidParams(details []FieldError) *Error {
	return &Error{Code: CodeInvalidParams, Message: "invalid arguments", Details: details}
}

// NewInvalidRequest reports a malformed envelope.
func NewInvalidRequest(message string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: message}
}

// NewUpstream reports an exhausted upstream failure.
func NewUpstream(message string) *Error {
	return &Error{Code: CodeUpstream, Message: message}
}

// NewTimeout reports a blown tool deadline.
func NewTimeout(tool string) *Error {
	return &Error{Code: CodeTimeout, Message: fmt.Sprintf("tool %s timed out", tool)}
}

// NewInternal wraps an unexpected failure with a sanitized message.
func NewInternal(message string) *Error {
	return &Error{Code: CodeInternal, Message: message}
}

// AsToolError extracts a typed tool error if err carries one.
func AsToolError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
