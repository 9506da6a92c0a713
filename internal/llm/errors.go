package llm

import (
	"errors"
)

// ErrDisabled is returned when no gateway key is configured
var ErrDisabled = errors.New("llm gateway not configured")

// ErrNoJSON is returned when a response contains no JSON object
var ErrNoJSON = errors.New("no JSON object in response")

// ErrEmptyResponse is returned when the gateway answers without any choices
var ErrEmptyResponse = errors.New("llm returned no choices")

// TransientError represents a temporary failure (rate limit, 5xx, network).
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient.
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// IsTransient returns true if the error is transient.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
