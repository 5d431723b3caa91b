package repository

import "errors"

// Common repository errors
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrIssueNotFound   = errors.New("issue not found")
	ErrCommentNotFound = errors.New("comment not found")

	// ErrDuplicateEmail is returned when a user with the same email already exists
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrAlreadyMember is returned when adding a user that is already in the member set
	ErrAlreadyMember = errors.New("user already in project")
)
