package project

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidArgument is returned for malformed calls into Project.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIO matches every *IOError.
	ErrIO = errors.New("i/o error")
	// ErrMissingCredentials is returned when a remote operation lacks username or password.
	ErrMissingCredentials = errors.New("username and password are required to authenticate")
	// ErrUnknownAdapter is returned when a record names an unsupported hosting api.
	ErrUnknownAdapter = errors.New("unknown hosting api")
	// ErrOrphanedRemote marks a create that provisioned a remote repository
	// but failed to attach it locally. The remote is not deleted.
	ErrOrphanedRemote = errors.New("remote repository was created but could not be attached")
	// ErrNotFound is returned when no record has the requested name.
	ErrNotFound = errors.New("project not found")
)

// ValidationError reports bad, missing or conflicting input. It is always
// returned before anything is mutated.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrValidation, e.Err}
	}
	return []error{ErrValidation}
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IOError wraps a filesystem or local git failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

func ioError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
