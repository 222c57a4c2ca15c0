package store

import (
	"context"

	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// UserRepository manages caregiver accounts on the server.
type UserRepository interface {
	// CreateUser persists a new account. Returns [ErrLoginAlreadyExists]
	// when the login is taken.
	CreateUser(ctx context.Context, user models.User) (models.User, error)

	// FindUserByLogin looks an account up by login. Returns
	// [ErrNoUserWasFound] when absent.
	FindUserByLogin(ctx context.Context, user models.User) (models.User, error)
}

// RecordRepository manages the server's versioned entity records.
type RecordRepository interface {
	// Apply executes one mutation under optimistic concurrency. On
	// [ErrVersionConflict] and [ErrRecordAlreadyExists] the returned
	// record carries the current remote state.
	Apply(ctx context.Context, userID int64, device string, mutation models.QueuedMutation) (models.EntityRecord, error)

	// GetRecord returns one record by composite key, or
	// [ErrRecordNotFound].
	GetRecord(ctx context.Context, userID int64, entityType models.EntityType, entityID string) (models.EntityRecord, error)

	// ListRecords returns the user's records narrowed by the filter,
	// newest first.
	ListRecords(ctx context.Context, userID int64, filter models.RecordFilter) ([]models.EntityRecord, error)
}
