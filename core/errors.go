package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("permission denied")
	ErrDuplicateEmail = errors.New("a member with this email already exists")
)

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
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// DuplicateError carries the store's uniqueness-violation code so callers can tell a
// duplicate email apart from any other failure.
type DuplicateError struct {
	Code       string
	Constraint string
}

func (err *DuplicateError) Error() string { return ErrDuplicateEmail.Error() }

// Is reports a DuplicateError as ErrDuplicateEmail.
func (err *DuplicateError) Is(target error) bool { return target == ErrDuplicateEmail }

// IsDuplicate reports whether err is (or wraps) a uniqueness violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEmail)
}

// UpstreamError is a network or backing-store failure, kept raw for operator debugging.
type UpstreamError struct {
	Op     string
	Status string
	Text   string
	Err    error
}

func NewUpstreamError(op string, err error) error {
	uerr := &UpstreamError{Op: op, Err: err}
	if err != nil {
		uerr.Text = err.Error()
	}
	return uerr
}

func (err *UpstreamError) Error() string {
	if err.Status != "" {
		return fmt.Sprintf("%s: upstream error (%s): %s", err.Op, err.Status, err.Text)
	}
	return fmt.Sprintf("%s: upstream error: %s", err.Op, err.Text)
}

func (err *UpstreamError) Unwrap() error { return err.Err }

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
