package service

import "errors"

var (
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("please enter a valid email address")
	ErrInvalidUsername    = errors.New("username is required")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrUserNotFound       = errors.New("user not found")

	ErrTaskNotFound     = errors.New("task not found")
	ErrAssigneeNotFound = errors.New("assigned user not found")
	ErrForbidden        = errors.New("forbidden: user does not have permission for this action")
	ErrInvalidTask      = errors.New("title and description are required")
	ErrInvalidDueDate   = errors.New("invalid due date, use YYYY-MM-DD")
	ErrInvalidPriority  = errors.New("priority must be one of Low, Medium, High")
	ErrInvalidStatus    = errors.New("status must be one of Pending, In Progress, Completed")
	ErrInvalidFilter    = errors.New("invalid filter")
	ErrInvalidTaskID    = errors.New("invalid task ID format")
)

// IsValidationError reports whether err stems from bad client input
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidEmail, ErrInvalidUsername, ErrWeakPassword, ErrPasswordTooLong,
		ErrInvalidTask, ErrInvalidDueDate, ErrInvalidPriority, ErrInvalidStatus,
		ErrInvalidFilter, ErrInvalidTaskID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
