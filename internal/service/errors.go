package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotFound      = errors.New("email doesn't exist")
	ErrEmailTaken         = errors.New("email already registered")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrRoleNotFound       = errors.New("role not found")
	ErrRoleSlugExists     = errors.New("role slug already exists")
)

// RefreshError is any failure of the refresh-rotation protocol. Revoked means
// the owning session was (or must be) torn down as well. The reason stays
// internal: callers collapse every RefreshError to a generic unauthorized
// response.
type RefreshError struct {
	Reason  string
	Revoked bool
}

func (e *RefreshError) Error() string {
	return e.Reason
}

func refreshErr(reason string, revoked bool) *RefreshError {
	return &RefreshError{Reason: reason, Revoked: revoked}
}

// SystemRoleError marks a mutation attempt on an immutable system role. It is
// rejected regardless of caller permissions.
type SystemRoleError struct {
	Slug string
}

func (e *SystemRoleError) Error() string {
	return fmt.Sprintf("system role %q is protected", e.Slug)
}

// InvalidPermissionsError carries the permission names that are not part of
// the configured catalogue.
type InvalidPermissionsError struct {
	Permissions []string
}

func (e *InvalidPermissionsError) Error() string {
	return fmt.Sprintf("invalid permissions: %s", strings.Join(e.Permissions, ", "))
}

// PermissionDeniedError lists the permissions the caller is missing. The list
// is safe to disclose and aids client UX.
type PermissionDeniedError struct {
	Required []string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("missing required permissions: %s", strings.Join(e.Required, ", "))
}
