package engine

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine readable category of an engine error.
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindDuplicateIdentifier Kind = "duplicate_identifier"
	KindUnknownIdentifier   Kind = "unknown_identifier"
	KindBadCredentials      Kind = "bad_credentials"
	KindUnauthenticated     Kind = "not_authenticated"
	KindForbidden           Kind = "admin_required"
	KindAlreadyVoted        Kind = "already_voted"
	KindMissingCandidate    Kind = "missing_candidate"
	KindUnknownCandidate    Kind = "unknown_candidate"
	KindNotFound            Kind = "not_found"
	KindNoData              Kind = "no_data"
	KindStorageFailure      Kind = "storage_failure"
)

// Error is returned by all engine operations.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any engine error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation          = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrDuplicateIdentifier = &Error{Kind: KindDuplicateIdentifier, Message: "user already exists"}
	ErrUnknownIdentifier   = &Error{Kind: KindUnknownIdentifier, Message: "user not found"}
	ErrBadCredentials      = &Error{Kind: KindBadCredentials, Message: "invalid credentials"}
	ErrUnauthenticated     = &Error{Kind: KindUnauthenticated, Message: "not logged in"}
	ErrForbidden           = &Error{Kind: KindForbidden, Message: "admin only"}
	ErrAlreadyVoted        = &Error{Kind: KindAlreadyVoted, Message: "already voted"}
	ErrMissingCandidate    = &Error{Kind: KindMissingCandidate, Message: "candidate required"}
	ErrUnknownCandidate    = &Error{Kind: KindUnknownCandidate, Message: "candidate does not exist"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrNoData              = &Error{Kind: KindNoData, Message: "no votes"}
	ErrStorageFailure      = &Error{Kind: KindStorageFailure, Message: "storage failure"}
)

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func storageError(message string, err error) *Error {
	return &Error{Kind: KindStorageFailure, Message: message, Err: err}
}

// KindOf returns the kind of err. Errors that did not originate in the engine are storage failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFailure
}

// MessageOf returns the message that is safe to show to a client.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStorageFailure {
		return e.Message
	}
	return ErrStorageFailure.Message
}
