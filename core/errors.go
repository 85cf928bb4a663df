package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// CollaboratorError is returned when an external service (transcription, grammar correction)
// fails, times out or answers with a non-success status.
type CollaboratorError struct {
	Service string
	Err     error
}

func NewCollaboratorError(service string, err error) error {
	return &CollaboratorError{Service: service, Err: err}
}

func (err CollaboratorError) Error() string {
	if err.Err == nil {
		return err.Service + " failed"
	}
	return err.Service + ": " + err.Err.Error()
}

func (err CollaboratorError) Unwrap() error { return err.Err }

// PersistenceError is returned when a store write failed. The write has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func (err PersistenceError) Error() string {
	if err.Err == nil {
		return err.Op
	}
	return err.Op + ": " + err.Err.Error()
}

func (err PersistenceError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
