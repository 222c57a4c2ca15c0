package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/store"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/utils"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

type mutationQueue struct {
	repo      store.QueueRepository
	ids       *utils.UUIDGenerator
	batchSize int
	now       func() time.Time

	logger *logger.Logger
}

// NewMutationQueue constructs the durable [MutationQueue] on top of the
// local queue repository. batchSize bounds how many mutations a single
// drain iteration pulls.
func NewMutationQueue(repo store.QueueRepository, batchSize int, logger *logger.Logger) MutationQueue {
	return &mutationQueue{
		repo:      repo,
		ids:       utils.NewUUIDGenerator(),
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// Enqueue implements [MutationQueue]. The mutation is eligible immediately:
// NextAttemptAt is set to the enqueue time and the attempt counter starts at
// zero.
func (q *mutationQueue) Enqueue(ctx context.Context, input models.MutationInput) (models.QueuedMutation, error) {
	if err := validateMutationInput(input); err != nil {
		return models.QueuedMutation{}, err
	}

	now := q.now()
	mutation := models.QueuedMutation{
		ID:             q.ids.Generate(),
		EntityType:     input.EntityType,
		EntityID:       input.EntityID,
		Operation:      input.Operation,
		Payload:        input.Payload,
		BaseVersion:    input.BaseVersion,
		LocalTimestamp: now,
		Status:         models.StatusPending,
		NextAttemptAt:  now,
	}

	saved, err := q.repo.Insert(ctx, mutation)
	if err != nil {
		return models.QueuedMutation{}, fmt.Errorf("enqueue mutation: %w", err)
	}

	q.logger.Debug().
		Str("func", "*mutationQueue.Enqueue").
		Str("mutation_id", saved.ID).
		Str("entity_type", string(saved.EntityType)).
		Str("entity_id", saved.EntityID).
		Msg("mutation enqueued")

	return saved, nil
}

// NextBatch implements [MutationQueue].
func (q *mutationQueue) NextBatch(ctx context.Context) ([]models.QueuedMutation, error) {
	return q.repo.NextBatch(ctx, q.now(), q.batchSize)
}

// MarkInFlight implements [MutationQueue].
func (q *mutationQueue) MarkInFlight(ctx context.Context, mutationID string) error {
	_, err := q.repo.MarkInFlight(ctx, mutationID)
	return err
}

// MarkApplied implements [MutationQueue].
func (q *mutationQueue) MarkApplied(ctx context.Context, mutationID string) error {
	_, err := q.repo.MarkApplied(ctx, mutationID)
	return err
}

// MarkFailed implements [MutationQueue].
func (q *mutationQueue) MarkFailed(ctx context.Context, mutationID string, reason string) error {
	q.logger.Warn().
		Str("func", "*mutationQueue.MarkFailed").
		Str("mutation_id", mutationID).
		Str("reason", reason).
		Msg("mutation permanently failed")

	_, err := q.repo.MarkFailed(ctx, mutationID, reason)
	return err
}

// MarkConflicted implements [MutationQueue].
func (q *mutationQueue) MarkConflicted(ctx context.Context, mutationID string, reason string) error {
	_, err := q.repo.MarkConflicted(ctx, mutationID, reason)
	return err
}

// ScheduleRetry implements [MutationQueue].
func (q *mutationQueue) ScheduleRetry(ctx context.Context, mutationID string, reason string, delay time.Duration) error {
	_, err := q.repo.ScheduleRetry(ctx, mutationID, reason, q.now().Add(delay))
	return err
}

// DiscardConflicted implements [MutationQueue]. When nothing was discarded,
// the mutation is looked up to tell a vanished id apart from one that is not
// parked as conflicted.
func (q *mutationQueue) DiscardConflicted(ctx context.Context, mutationID string) error {
	changed, err := q.repo.DiscardConflicted(ctx, mutationID)
	if err != nil {
		return err
	}
	if changed {
		return nil
	}

	stored, err := q.repo.GetByID(ctx, mutationID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: mutation %s is %s, not conflicted", ErrInvalidMutation, mutationID, stored.Status)
}

// RetryFailed implements [MutationQueue].
func (q *mutationQueue) RetryFailed(ctx context.Context) (int64, error) {
	return q.repo.RetryFailed(ctx, q.now())
}

// ListFailed implements [MutationQueue].
func (q *mutationQueue) ListFailed(ctx context.Context) ([]models.QueuedMutation, error) {
	return q.repo.ListByStatus(ctx, models.StatusFailed)
}

// ListConflicted implements [MutationQueue].
func (q *mutationQueue) ListConflicted(ctx context.Context) ([]models.QueuedMutation, error) {
	return q.repo.ListByStatus(ctx, models.StatusConflicted)
}

// PurgeApplied implements [MutationQueue].
func (q *mutationQueue) PurgeApplied(ctx context.Context, before time.Time) (int64, error) {
	purged, err := q.repo.PurgeApplied(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("purge applied mutations: %w", err)
	}
	if purged > 0 {
		q.logger.Debug().
			Str("func", "*mutationQueue.PurgeApplied").
			Int64("purged", purged).
			Msg("old applied mutations purged")
	}
	return purged, nil
}

// Stats implements [MutationQueue]. Pending counts in_flight mutations too:
// from the caller's point of view both are "not yet synced".
func (q *mutationQueue) Stats(ctx context.Context) (QueueStats, error) {
	counts, err := q.repo.CountsByStatus(ctx)
	if err != nil {
		return QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}

	byType, err := q.repo.PendingByType(ctx)
	if err != nil {
		return QueueStats{}, fmt.Errorf("queue stats by type: %w", err)
	}

	return QueueStats{
		PendingCount:    counts[models.StatusPending] + counts[models.StatusInFlight],
		FailedCount:     counts[models.StatusFailed],
		ConflictedCount: counts[models.StatusConflicted],
		AppliedCount:    counts[models.StatusApplied],
		PendingByType:   byType,
	}, nil
}

func validateMutationInput(input models.MutationInput) error {
	switch input.EntityType {
	case models.EntityEvent, models.EntityBaby, models.EntitySettings, models.EntityMedication, models.EntityMilestone:
	default:
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalidMutation, input.EntityType)
	}

	if input.EntityID == "" {
		return fmt.Errorf("%w: empty entity id", ErrInvalidMutation)
	}

	switch input.Operation {
	case models.OperationCreate:
		if len(input.Payload) == 0 {
			return fmt.Errorf("%w: create requires a payload", ErrInvalidMutation)
		}
		if input.BaseVersion != 0 {
			return fmt.Errorf("%w: create must start from version 0", ErrInvalidMutation)
		}
	case models.OperationUpdate:
		if len(input.Payload) == 0 {
			return fmt.Errorf("%w: update requires a payload", ErrInvalidMutation)
		}
		if input.BaseVersion < 1 {
			return fmt.Errorf("%w: update requires the current base version", ErrInvalidMutation)
		}
	case models.OperationDelete:
		if input.BaseVersion < 1 {
			return fmt.Errorf("%w: delete requires the current base version", ErrInvalidMutation)
		}
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidMutation, input.Operation)
	}

	return nil
}
