// internal/tools/errors.go
package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/xkilldash9x/webpilot/internal/locator"
)

// ErrorKind discriminates tool failures. Every kind is non-fatal: the error
// is rendered as text into the conversation and the model decides what to do.
type ErrorKind string

const (
	KindExecution       ErrorKind = "EXECUTION_FAILURE"
	KindElementNotFound ErrorKind = "ELEMENT_NOT_FOUND"
	KindCancelled       ErrorKind = "CANCELLED"
	KindTimeout         ErrorKind = "TIMEOUT_ERROR"
	KindUnknownTool     ErrorKind = "UNKNOWN_TOOL"
	KindInvalidInput    ErrorKind = "INVALID_PARAMETERS"
)

// ToolError is a typed tool failure. Message is the text the model sees.
type ToolError struct {
	Kind    ErrorKind
	Tool    ToolName
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Flagged reports whether the result should carry the is_error flag. A
// missing element or a declined confirmation is an answer, not a failure.
func (e *ToolError) Flagged() bool {
	switch e.Kind {
	case KindElementNotFound, KindCancelled:
		return false
	default:
		return true
	}
}

func newToolError(kind ErrorKind, tool ToolName, msg string, err error) *ToolError {
	return &ToolError{Kind: kind, Tool: tool, Message: msg, Err: err}
}

// classify maps a raw error from a tool body to a kind. Deadlines are
// detected structurally; the string checks catch engine errors that only
// describe a timeout in their text.
func classify(err error) ErrorKind {
	var te *ToolError
	switch {
	case errors.As(err, &te):
		return te.Kind
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, locator.ErrNotFound):
		return KindElementNotFound
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return KindTimeout
	}
	return KindExecution
}
