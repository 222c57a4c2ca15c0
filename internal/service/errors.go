package service

import "errors"

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")
	ErrWrongPassword       = errors.New("wrong password")

	ErrTokenIsExpired          = errors.New("token is expired")
	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")

	// ErrInvalidMutation rejects an enqueue whose input fails validation.
	ErrInvalidMutation = errors.New("invalid mutation")

	// ErrMergeNotSupported rejects a merge resolution for entity types
	// without merge semantics; only event records can be merged.
	ErrMergeNotSupported = errors.New("merge is not supported for this entity type")

	// ErrConflictNotFound means the referenced conflict is not in the
	// resolver's inbox (already resolved or never existed).
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrConflictNotActive means the referenced conflict is queued behind
	// older ones; conflicts are resolved strictly oldest first.
	ErrConflictNotActive = errors.New("conflict is not the active one")

	// ErrUnknownOperation rejects a mutation whose operation the server
	// does not recognise.
	ErrUnknownOperation = errors.New("unknown operation")
)
