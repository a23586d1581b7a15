package social

import "errors"

var (
	// ErrUnauthorized is returned when no actor is given
	ErrUnauthorized = errors.New("social: actor required")

	// ErrInvalidTarget is returned for unsupported kind/target pairs and self-follows
	ErrInvalidTarget = errors.New("social: invalid target")

	// ErrTargetNotFound is returned when the target does not resolve
	ErrTargetNotFound = errors.New("social: target not found")

	// ErrConflict is returned when a toggle keeps losing a unique-constraint race
	ErrConflict = errors.New("social: conflicting concurrent update")
)
