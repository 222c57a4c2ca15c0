package store

import (
	"context"
	"time"

	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// QueueRepository is the durable store behind the client's mutation queue.
//
// Status transitions are guarded in SQL: a Mark* call on a mutation that has
// already been settled changes nothing and reports false instead of failing,
// so replays of sync results stay harmless.
type QueueRepository interface {
	// Insert appends a mutation to the queue tail and returns it with the
	// assigned sequence number.
	Insert(ctx context.Context, mutation models.QueuedMutation) (models.QueuedMutation, error)

	// GetByID returns one mutation, or [ErrMutationNotFound].
	GetByID(ctx context.Context, mutationID string) (models.QueuedMutation, error)

	// NextBatch returns up to limit mutations eligible for syncing at the
	// given instant, in queue order.
	NextBatch(ctx context.Context, now time.Time, limit int) ([]models.QueuedMutation, error)

	// MarkInFlight moves a pending mutation to in_flight.
	MarkInFlight(ctx context.Context, mutationID string) (bool, error)

	// MarkApplied settles a mutation as synced.
	MarkApplied(ctx context.Context, mutationID string) (bool, error)

	// MarkFailed settles a mutation as permanently failed.
	MarkFailed(ctx context.Context, mutationID string, reason string) (bool, error)

	// MarkConflicted parks a mutation until its conflict is resolved.
	MarkConflicted(ctx context.Context, mutationID string, reason string) (bool, error)

	// ScheduleRetry returns a mutation to pending with an incremented
	// attempt counter, eligible again at nextAttemptAt.
	ScheduleRetry(ctx context.Context, mutationID string, reason string, nextAttemptAt time.Time) (bool, error)

	// DiscardConflicted removes a conflicted mutation, lifting the sync
	// block on its entity.
	DiscardConflicted(ctx context.Context, mutationID string) (bool, error)

	// RetryFailed revives every failed mutation and reports how many.
	RetryFailed(ctx context.Context, now time.Time) (int64, error)

	// ListByStatus returns every mutation in the given status, in queue
	// order.
	ListByStatus(ctx context.Context, status models.MutationStatus) ([]models.QueuedMutation, error)

	// CountsByStatus returns mutation counts keyed by status.
	CountsByStatus(ctx context.Context) (map[models.MutationStatus]int, error)

	// PendingByType returns pending mutation counts keyed by entity type.
	PendingByType(ctx context.Context) (map[models.EntityType]int, error)

	// PurgeApplied deletes applied mutations older than the cutoff.
	PurgeApplied(ctx context.Context, before time.Time) (int64, error)
}
