package service

import (
	"context"

	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// AuthService handles caregiver account lifecycle and JWT issuance on the
// server.
type AuthService interface {
	// RegisterUser creates a new account from the registration request.
	RegisterUser(ctx context.Context, req models.RegisterRequest) (models.User, error)

	// Login verifies the credentials and returns the stored account.
	Login(ctx context.Context, req models.LoginRequest) (models.User, error)

	// CreateToken issues a signed JWT for the user, carrying the device
	// label so every write the device makes can be attributed.
	CreateToken(ctx context.Context, user models.User, device string) (models.Token, error)

	// ParseToken validates and decodes a raw JWT string.
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

// RecordService applies mutation batches against the server's record store
// and serves record reads.
type RecordService interface {
	// ApplyBatch applies the batch sequentially in request order and
	// returns one result per mutation. Version mismatches come back as
	// conflict results carrying the current remote record; they never
	// fail the batch.
	ApplyBatch(ctx context.Context, userID int64, device string, req models.ApplyRequest) (models.ApplyResponse, error)

	// GetRecord returns one record by composite key.
	GetRecord(ctx context.Context, userID int64, entityType models.EntityType, entityID string) (models.EntityRecord, error)

	// ListRecords returns the user's records narrowed by the filter.
	ListRecords(ctx context.Context, userID int64, filter models.RecordFilter) ([]models.EntityRecord, error)
}
