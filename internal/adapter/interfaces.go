// Package adapter provides transport-layer abstractions for communicating
// with the sync server.
//
// The primary abstraction is [RemoteStore], which decouples the sync engine
// and the client services from the underlying protocol. The package ships an
// HTTP/REST implementation ([NewHTTPRemoteStore]).
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic
// error handling (e.g. [ErrConflict] for 409, [ErrUnauthorized] for 401).
package adapter

import (
	"context"

	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// RemoteStore defines transport-agnostic communication with the sync server.
// Implementations are responsible for serialisation, authentication header
// management, and mapping transport-level errors to the sentinel values
// defined in this package.
type RemoteStore interface {
	// SetToken stores the bearer token that will be attached to all
	// subsequent authenticated requests. It should be called immediately
	// after a successful Register or Login.
	SetToken(token string)

	// Token returns the bearer token currently stored in the adapter, or
	// an empty string if no token has been set yet.
	Token() string

	// Register creates a new caregiver account and enrolls this device.
	// On success it stores the returned bearer token via SetToken.
	Register(ctx context.Context, req models.RegisterRequest) (models.Token, error)

	// Login authenticates an existing account from this device. On success
	// it stores the returned bearer token via SetToken.
	Login(ctx context.Context, req models.LoginRequest) (models.Token, error)

	// ApplyBatch pushes a batch of queued mutations to the server and
	// returns the per-mutation outcomes in request order. A non-nil error
	// means the batch as a whole did not reach the server; individual
	// conflicts and rejections come back inside the response instead.
	ApplyBatch(ctx context.Context, req models.ApplyRequest) (models.ApplyResponse, error)

	// FetchRecord retrieves the current server state of one record. Used
	// by the conflict resolver to pick up a fresh base version. Returns
	// [ErrNotFound] (wrapped) when the server has no such record.
	FetchRecord(ctx context.Context, entityType models.EntityType, entityID string) (models.EntityRecord, error)

	// ListRecords retrieves the account's records narrowed by the filter.
	// Used by a fresh device to bootstrap its local cache.
	ListRecords(ctx context.Context, filter models.RecordFilter) ([]models.EntityRecord, error)

	// Ping probes server reachability without authentication. The network
	// monitor calls it to confirm connectivity transitions.
	Ping(ctx context.Context) error
}
