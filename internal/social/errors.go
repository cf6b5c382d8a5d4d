package social

import "errors"

// Failure kinds returned by the store. Callers match them with errors.Is;
// anything else is an infrastructure failure.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrContention       = errors.New("too many concurrent updates, try again")
)
