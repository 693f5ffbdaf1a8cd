package policy

import (
	"errors"
	"fmt"
)

// ErrInvalidKey is returned when a supplied confirmation key does not
// match the digest of the record's current secret.
var ErrInvalidKey = errors.New("invalid key")

// MissingFieldError reports a required field absent at creation time.
type MissingFieldError struct {
	Attr FieldName
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Attr)
}

// ValidationError reports a validator or computer rejecting a field.
// It wraps the underlying cause so sentinel checks (errors.Is) pass through.
type ValidationError struct {
	Attr FieldName
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %v", e.Attr, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AuthorizationError reports a role lacking permission for an action,
// optionally naming the offending attribute of a write-set.
type AuthorizationError struct {
	Attr   FieldName
	Role   Role
	Action Action
}

func (e *AuthorizationError) Error() string {
	if e.Attr == "" {
		return fmt.Sprintf("role %s is not permitted to %s", e.Role, e.Action)
	}
	return fmt.Sprintf("role %s is not permitted to %s field %q", e.Role, e.Action, e.Attr)
}

// DuplicateError reports a uniqueness violation on an attribute.
type DuplicateError struct {
	Attr  FieldName
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already taken", e.Attr, e.Value)
}
