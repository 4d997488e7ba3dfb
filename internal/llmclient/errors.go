// internal/llmclient/errors.go
package llmclient

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned by the factory when no credential is configured.
var ErrMissingAPIKey = errors.New("model API key is not set")

// TransportError is any failure to obtain a turn from the model: network
// errors, non-2xx responses, undecodable bodies. It is fatal for the run;
// the loop never retries it.
type TransportError struct {
	Provider   string
	StatusCode int // Zero when no HTTP response was received.
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func transportErr(provider string, status int, err error, format string, args ...interface{}) *TransportError {
	return &TransportError{
		Provider:   provider,
		StatusCode: status,
		Message:    fmt.Sprintf(format, args...),
		Err:        err,
	}
}
