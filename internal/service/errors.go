package service

import (
	"errors"
	"fmt"

	"issuetracker/internal/access"
	"issuetracker/internal/ordering"
	"issuetracker/internal/repository"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindValidation
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	}
	return "internal"
}

// Error is the only error type services return. Message is safe to show to
// the caller. Err carries the underlying failure for internal errors.
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

func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns KindInternal for errors that are not *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// translate maps store, guard and ordering errors onto the service taxonomy.
// msg describes the operation for internal failures.
func translate(err error, msg string) error {
	var e *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &e):
		return e
	case errors.Is(err, access.ErrDenied):
		return Forbidden("Access denied")
	case errors.Is(err, repository.ErrProjectNotFound):
		return NotFound("Project not found")
	case errors.Is(err, repository.ErrIssueNotFound):
		return NotFound("Issue not found")
	case errors.Is(err, repository.ErrCommentNotFound):
		return NotFound("Comment not found")
	case errors.Is(err, repository.ErrUserNotFound):
		return NotFound("User not found")
	case errors.Is(err, repository.ErrDuplicateEmail):
		return Conflict("Email already registered")
	case errors.Is(err, repository.ErrAlreadyMember):
		return Validation("User already in project")
	case errors.Is(err, ordering.ErrBusy):
		return Conflict("Issue is being moved by someone else, try again")
	case errors.Is(err, ordering.ErrInvalidOrder):
		return Validation("Order must be a non-negative integer")
	}
	return Internal(msg, err)
}
