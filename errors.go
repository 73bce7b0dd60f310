package permkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for permkit operations.
var (
	// ErrForbidden is returned when an actor may not view or act on the
	// target resource. Maps to HTTP 403 at the transport layer.
	ErrForbidden = errors.New("permkit: forbidden")

	// ErrUnknownCapability is returned when a grant names a capability that
	// is not defined in the registry. Checks for unknown capabilities do not
	// error: they simply deny.
	ErrUnknownCapability = errors.New("permkit: unknown capability")

	// ErrScopeMismatch is returned when a grant's scope kind does not match
	// the capability's declared kind.
	ErrScopeMismatch = errors.New("permkit: scope mismatch")

	// ErrInvalidLevel is returned when a permission level name or value is
	// not one of role, roleGroup, roleGroupModule.
	ErrInvalidLevel = errors.New("permkit: invalid permission level")

	// ErrEveryoneGroupImmutable is returned on attempts to edit, delete or
	// directly change membership of the everyone group.
	ErrEveryoneGroupImmutable = errors.New("permkit: everyone group is system managed")

	// ErrRoleRequired is returned when a user record is missing its role.
	ErrRoleRequired = errors.New("permkit: user role is required")

	// ErrNoActorID is returned when the actor ID is not found in context for
	// an audited mutation.
	ErrNoActorID = errors.New("permkit: no actor ID in context")

	// ErrNoUserID is returned when the user ID is not found in context.
	ErrNoUserID = errors.New("permkit: no user ID in context")

	// ErrNotFound is returned when a role, group or user cannot be resolved.
	ErrNotFound = errors.New("permkit: not found")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("permkit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	Capability string // Capability involved (if applicable)
	Scope      string // Scope involved, in Scope.String() form
	Holder     string // Holder involved, in Holder.String() form
	UserID     string // User involved (if applicable)
	ActorID    string // Actor who triggered the error (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithCapability adds the capability name to the error.
func (e *Error) WithCapability(capability string) *Error {
	e.Capability = capability
	return e
}

// WithScope adds scope information to the error.
func (e *Error) WithScope(scope Scope) *Error {
	e.Scope = scope.String()
	return e
}

// WithHolder adds holder information to the error.
func (e *Error) WithHolder(holder Holder) *Error {
	e.Holder = holder.String()
	return e
}

// WithUser adds user information to the error.
func (e *Error) WithUser(userID string) *Error {
	e.UserID = userID
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// IsForbidden checks if an error is an authorization denial.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsUnknownCapability checks if an error is due to an undefined capability.
func IsUnknownCapability(err error) bool {
	return errors.Is(err, ErrUnknownCapability)
}

// IsScopeMismatch checks if an error is due to a grant at the wrong scope.
func IsScopeMismatch(err error) bool {
	return errors.Is(err, ErrScopeMismatch)
}

// IsEveryoneGroupImmutable checks if an error is due to touching the
// everyone group directly.
func IsEveryoneGroupImmutable(err error) bool {
	return errors.Is(err, ErrEveryoneGroupImmutable)
}

// IsNotFound checks if an error is a missing role, group or user.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
