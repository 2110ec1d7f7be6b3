package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidAssignment = errors.New("invalid assignment")
	ErrValidation        = errors.New("validation failed")
)

// Error is a caller-facing failure. Kind is one of the sentinel errors above
// and Msg is safe to show to the client.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func unauthorized(msg string) error { return newError(ErrUnauthorized, "%s", msg) }
func forbidden(msg string) error    { return newError(ErrForbidden, "%s", msg) }
func notFound(msg string) error     { return newError(ErrNotFound, "%s", msg) }
func conflict(msg string) error     { return newError(ErrConflict, "%s", msg) }
