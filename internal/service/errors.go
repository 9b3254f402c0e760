package service

import (
	"errors"
	"fmt"
)

// Kind classifies an error returned by the service layer.  Callers map
// kinds to transport responses; the service never picks status codes.
type Kind string

const (
	KindInternal         Kind = "internal"
	KindNotFound         Kind = "not_found"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindConfigMissing    Kind = "config_missing"
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindDownstream       Kind = "downstream"
)

// Error is the discriminated error every service operation returns for
// expected failures.  Limit and Plan are only set for
// KindCapacityExceeded.
type Error struct {
	Kind    Kind
	Message string
	Limit   int
	Plan    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or KindInternal for errors that did not
// originate from the service layer (storage unavailable and the like).
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) *Error { return newError(KindNotFound, "%s not found", what) }

func invalid(format string, args ...any) *Error { return newError(KindValidation, format, args...) }

func conflict(format string, args ...any) *Error { return newError(KindConflict, format, args...) }

func downstream(msg string, err error) *Error {
	return &Error{Kind: KindDownstream, Message: msg, Err: err}
}
