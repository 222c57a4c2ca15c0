package service

import (
	"context"
	"time"

	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// MutationQueue is the durable FIFO of local changes awaiting sync. Writes
// always land here first; the UI reflects them optimistically while the sync
// engine drains the queue in the background.
type MutationQueue interface {
	// Enqueue validates the input, assigns an id and timestamps, and
	// appends the mutation to the queue tail. Returns the stored mutation.
	Enqueue(ctx context.Context, input models.MutationInput) (models.QueuedMutation, error)

	// NextBatch returns the mutations eligible for syncing right now, in
	// queue order. Per entity, only the head-of-line mutation is eligible,
	// and none are while the entity has an unresolved conflict.
	NextBatch(ctx context.Context) ([]models.QueuedMutation, error)

	// MarkInFlight transitions a pending mutation to in_flight before its
	// remote apply is attempted.
	MarkInFlight(ctx context.Context, mutationID string) error

	// MarkApplied settles a mutation as synced. Repeated calls are no-ops.
	MarkApplied(ctx context.Context, mutationID string) error

	// MarkFailed settles a mutation as permanently failed with a reason.
	// Repeated calls are no-ops.
	MarkFailed(ctx context.Context, mutationID string, reason string) error

	// MarkConflicted parks a mutation until its conflict is resolved.
	MarkConflicted(ctx context.Context, mutationID string, reason string) error

	// ScheduleRetry returns a mutation to pending with a grown attempt
	// counter, eligible again after the given backoff delay.
	ScheduleRetry(ctx context.Context, mutationID string, reason string, delay time.Duration) error

	// DiscardConflicted removes a resolved conflict's mutation, lifting
	// the sync block on its entity.
	DiscardConflicted(ctx context.Context, mutationID string) error

	// RetryFailed revives every failed mutation for another round of
	// attempts and reports how many were revived.
	RetryFailed(ctx context.Context) (int64, error)

	// ListFailed returns the permanently failed mutations, oldest first.
	ListFailed(ctx context.Context) ([]models.QueuedMutation, error)

	// ListConflicted returns the parked conflicted mutations, oldest
	// first. The resolver rebuilds its inbox from them after a restart.
	ListConflicted(ctx context.Context) ([]models.QueuedMutation, error)

	// PurgeApplied deletes applied mutations older than the cutoff and
	// reports how many were removed.
	PurgeApplied(ctx context.Context, before time.Time) (int64, error)

	// Stats returns current queue counters for health reporting.
	Stats(ctx context.Context) (QueueStats, error)
}

// QueueStats is the queue's contribution to a sync health snapshot.
type QueueStats struct {
	PendingCount    int
	FailedCount     int
	ConflictedCount int
	AppliedCount    int
	PendingByType   map[models.EntityType]int
}

// SyncEngine drains the mutation queue to the server whenever connectivity
// allows.
type SyncEngine interface {
	// Sync runs one drain cycle: pull eligible batches, push them to the
	// server, classify per-mutation outcomes, repeat until the queue has
	// nothing eligible. A call while a drain is already running, or while
	// the device is offline, returns immediately without error.
	Sync(ctx context.Context) error

	// RetryFailed revives failed mutations and immediately triggers a
	// drain attempt.
	RetryFailed(ctx context.Context) (int64, error)

	// Snapshot assembles the current sync health view for dashboards.
	Snapshot(ctx context.Context) (models.SyncHealthSnapshot, error)
}

// ConflictResolver owns the inbox of unresolved conflicts and applies the
// user's resolution decisions.
type ConflictResolver interface {
	// Add appends a detected conflict to the inbox.
	Add(conflict models.DataConflict)

	// Rebuild reloads the inbox from the parked conflicted mutations in
	// the queue, re-fetching each entity's current server state. Safe to
	// call repeatedly; mutations already tracked are skipped.
	Rebuild(ctx context.Context) error

	// Active returns the conflict that should be surfaced to the user
	// right now: the oldest unresolved one. Nil when the inbox is empty.
	Active() *models.DataConflict

	// List returns all unresolved conflicts, oldest first.
	List() []models.DataConflict

	// Resolve applies the user's decision to a conflict: keep the local
	// change (re-applied over the record's current remote version), adopt
	// the remote state, or merge both sides. Only the active (oldest)
	// conflict can be resolved; younger ones return [ErrConflictNotActive]
	// until their turn. Merge is only supported for event entities; other
	// types return [ErrMergeNotSupported].
	Resolve(ctx context.Context, conflictID string, resolution models.Resolution) (models.ConflictOutcome, error)

	// Dismiss resolves a conflict with the safe default: adopt remote.
	Dismiss(ctx context.Context, conflictID string) (models.ConflictOutcome, error)
}

// ClientAuthService registers or authenticates the caregiver account from
// this device and leaves the remote store holding a valid bearer token.
type ClientAuthService interface {
	// Register creates the account and enrolls this device.
	Register(ctx context.Context, login, password, name string) (models.Token, error)

	// Login authenticates an existing account from this device.
	Login(ctx context.Context, login, password string) (models.Token, error)
}

// SyncJob periodically triggers the sync engine while the app runs.
type SyncJob interface {
	// Start launches the background goroutine that calls Sync every
	// interval. Any previously running job is stopped first.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the background goroutine to exit and blocks until it
	// has fully terminated.
	Stop()
}
