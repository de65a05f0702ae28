package domain

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")

	// Credential failures, distinguished so the client can tell the
	// user why the connection was refused.
	ErrMissingCredential = errors.New("missing credential")
	ErrExpiredCredential = errors.New("expired credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

// ValidationError is a chat payload contract violation. It never causes
// persistence and is surfaced to the sender alone.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// PersistenceError wraps a failed store operation. Surfaced to the
// sender alone; never retried.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
