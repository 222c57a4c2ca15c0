package adapter

import "errors"

// Sentinel errors returned by [RemoteStore] implementations. The sync engine
// branches on these to classify a mutation outcome, so transport details
// never leak past this package.
var (
	// ErrUnauthorized means the bearer token is missing, expired or invalid.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrBadRequest means the server rejected the request shape itself.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound means the requested record does not exist on the server.
	ErrNotFound = errors.New("record not found")

	// ErrConflict means the server refused a write because the base version
	// was stale.
	ErrConflict = errors.New("version conflict")

	// ErrServerUnavailable means the server could not be reached or replied
	// with a gateway/availability failure. Treated as transient.
	ErrServerUnavailable = errors.New("server unavailable")

	// ErrInternalServerError means the server failed while processing the
	// request. Treated as transient.
	ErrInternalServerError = errors.New("internal server error")
)
