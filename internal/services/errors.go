package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/study-buddy-service/internal/validator"
)

// Error categories mapped to HTTP status codes by the handlers
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
)

// Domain errors
var (
	ErrNotAuthenticated   = fmt.Errorf("%w: not logged in", ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrUnauthorized)
	ErrUsernameTaken      = fmt.Errorf("%w: username already exists", ErrConflict)

	ErrInvalidInviteCode = fmt.Errorf("%w: invalid invite code", ErrNotFound)
	ErrClassroomNotFound = fmt.Errorf("%w: classroom not found", ErrNotFound)
	ErrAlreadyMember     = fmt.Errorf("%w: you are already a member of this classroom", ErrValidationFailed)

	ErrBuddyNotFound   = fmt.Errorf("%w: buddy is no longer available", ErrNotFound)
	ErrBuddyBusy       = fmt.Errorf("%w: buddy is already studying", ErrConflict)
	ErrSelfMatch       = fmt.Errorf("%w: cannot study with yourself", ErrValidationFailed)
	ErrSessionActive   = fmt.Errorf("%w: a study session is already active", ErrConflict)
	ErrNoActiveSession = fmt.Errorf("%w: no active study session", ErrNotFound)
)

// PermissionError describes a denied action. It matches ErrForbidden.
type PermissionError struct {
	Username   string
	ResourceID string
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(username, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		Username:   username,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s cannot %s %s %s: %s", e.Username, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

// validationError wraps validator output so it matches ErrValidationFailed
// while keeping the field details reachable with errors.As.
type validationError struct {
	errs validator.ValidationErrors
}

func (e *validationError) Error() string {
	return e.errs.Error()
}

func (e *validationError) Unwrap() []error {
	return []error{ErrValidationFailed, e.errs}
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return &validationError{errs: verrs}
	}
	return fmt.Errorf("%w: %v", ErrValidationFailed, err)
}
