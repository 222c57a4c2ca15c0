package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dario.cat/mergo"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/adapter"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/utils"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

type conflictResolver struct {
	queue  MutationQueue
	remote adapter.RemoteStore
	ids    *utils.UUIDGenerator

	mu        sync.Mutex
	conflicts []models.DataConflict

	logger *logger.Logger
}

// NewConflictResolver constructs the [ConflictResolver]. The inbox lives in
// memory; the parked mutations it references are durable in the queue, and
// [conflictResolver.Rebuild] reconstructs the inbox from them after a
// restart.
func NewConflictResolver(queue MutationQueue, remote adapter.RemoteStore, logger *logger.Logger) ConflictResolver {
	return &conflictResolver{
		queue:  queue,
		remote: remote,
		ids:    utils.NewUUIDGenerator(),
		logger: logger,
	}
}

// Add implements [ConflictResolver]. Conflicts queue up in arrival order so
// multi-conflict sessions are worked through oldest first.
func (r *conflictResolver) Add(conflict models.DataConflict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = append(r.conflicts, conflict)
}

// Rebuild implements [ConflictResolver]. Every conflicted mutation still in
// the queue gets a fresh inbox entry built against the record's current
// server state, so a restart never strands a parked local change.
func (r *conflictResolver) Rebuild(ctx context.Context) error {
	parked, err := r.queue.ListConflicted(ctx)
	if err != nil {
		return fmt.Errorf("list conflicted mutations: %w", err)
	}

	restored := 0
	for _, m := range parked {
		if r.tracked(m.ID) {
			continue
		}

		var remote *models.EntityRecord
		record, err := r.remote.FetchRecord(ctx, m.EntityType, m.EntityID)
		switch {
		case err == nil:
			remote = &record
		case errors.Is(err, adapter.ErrNotFound):
			// the competing write was a delete; both sides surface empty
		default:
			return fmt.Errorf("fetch remote state for mutation %s: %w", m.ID, err)
		}

		r.Add(newDataConflict(r.ids.Generate(), m, remote))
		restored++
	}

	if restored > 0 {
		r.logger.Info().
			Str("func", "*conflictResolver.Rebuild").
			Int("restored", restored).
			Msg("conflict inbox rebuilt from parked mutations")
	}

	return nil
}

// Active implements [ConflictResolver].
func (r *conflictResolver) Active() *models.DataConflict {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.conflicts) == 0 {
		return nil
	}
	head := r.conflicts[0]
	return &head
}

// List implements [ConflictResolver].
func (r *conflictResolver) List() []models.DataConflict {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.DataConflict(nil), r.conflicts...)
}

// Resolve implements [ConflictResolver].
//
// All three resolutions discard the parked mutation, which lifts the sync
// block on the entity. Local and merge first re-fetch the record so the
// derived mutation builds on the server's current version, not the one
// captured when the conflict was detected; resolving hours later still
// converges in one round trip.
func (r *conflictResolver) Resolve(ctx context.Context, conflictID string, resolution models.Resolution) (models.ConflictOutcome, error) {
	conflict, err := r.take(conflictID, resolution)
	if err != nil {
		return models.ConflictOutcome{}, err
	}

	if resolution == models.ResolutionLocal || resolution == models.ResolutionMerge {
		refreshed, err := r.refreshRemote(ctx, conflict)
		if err != nil {
			r.restore(conflict)
			return models.ConflictOutcome{}, fmt.Errorf("refresh remote state for conflict %s: %w", conflict.ID, err)
		}
		conflict = refreshed
	}

	if err := r.queue.DiscardConflicted(ctx, conflict.MutationID); err != nil {
		// put the conflict back; the queue still holds the parked mutation
		r.restore(conflict)
		return models.ConflictOutcome{}, fmt.Errorf("discard conflicted mutation %s: %w", conflict.MutationID, err)
	}

	r.logger.Info().
		Str("func", "*conflictResolver.Resolve").
		Str("conflict_id", conflict.ID).
		Str("entity_id", conflict.EntityID).
		Str("resolution", string(resolution)).
		Msg("conflict resolved")

	switch resolution {
	case models.ResolutionRemote:
		return models.ConflictOutcome{
			Resolution:    models.ResolutionRemote,
			AdoptedFields: conflict.RemoteData,
		}, nil

	case models.ResolutionLocal:
		enqueued, err := r.enqueueDerived(ctx, conflict, conflict.LocalData)
		if err != nil {
			return models.ConflictOutcome{}, err
		}
		return models.ConflictOutcome{
			Resolution:         models.ResolutionLocal,
			EnqueuedMutationID: enqueued,
		}, nil

	case models.ResolutionMerge:
		merged := mergeFields(conflict)
		enqueued, err := r.enqueueDerived(ctx, conflict, merged)
		if err != nil {
			return models.ConflictOutcome{}, err
		}
		return models.ConflictOutcome{
			Resolution:         models.ResolutionMerge,
			AdoptedFields:      merged,
			EnqueuedMutationID: enqueued,
		}, nil

	default:
		return models.ConflictOutcome{}, fmt.Errorf("unknown resolution %q", resolution)
	}
}

// Dismiss implements [ConflictResolver]. Walking away from a conflict must
// never lose the other caregiver's data, so dismissal adopts remote.
func (r *conflictResolver) Dismiss(ctx context.Context, conflictID string) (models.ConflictOutcome, error) {
	return r.Resolve(ctx, conflictID, models.ResolutionRemote)
}

// take removes the head conflict from the inbox, validating that it is the
// one being resolved and that the resolution suits its entity type.
// Conflicts are strictly resolved oldest first.
func (r *conflictResolver) take(conflictID string, resolution models.Resolution) (models.DataConflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.conflicts) == 0 {
		return models.DataConflict{}, ErrConflictNotFound
	}

	head := r.conflicts[0]
	if head.ID != conflictID {
		for _, c := range r.conflicts[1:] {
			if c.ID == conflictID {
				return models.DataConflict{}, ErrConflictNotActive
			}
		}
		return models.DataConflict{}, ErrConflictNotFound
	}

	if resolution == models.ResolutionMerge && head.EntityType != models.EntityEvent {
		return models.DataConflict{}, ErrMergeNotSupported
	}

	r.conflicts = r.conflicts[1:]
	return head, nil
}

// restore returns a taken conflict to the head of the inbox, keeping
// detection order intact.
func (r *conflictResolver) restore(conflict models.DataConflict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = append([]models.DataConflict{conflict}, r.conflicts...)
}

// tracked reports whether the inbox already holds a conflict for the given
// mutation.
func (r *conflictResolver) tracked(mutationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conflicts {
		if c.MutationID == mutationID {
			return true
		}
	}
	return false
}

// refreshRemote updates the conflict's remote side from the record's current
// server state. A record the server no longer has leaves the remote side
// empty, turning a local re-apply into a create.
func (r *conflictResolver) refreshRemote(ctx context.Context, conflict models.DataConflict) (models.DataConflict, error) {
	record, err := r.remote.FetchRecord(ctx, conflict.EntityType, conflict.EntityID)
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			conflict.RemoteData = nil
			conflict.RemoteVersion = 0
			return conflict, nil
		}
		return models.DataConflict{}, err
	}

	if record.Version != conflict.RemoteVersion {
		conflict.RemoteData = remoteFieldsTouchedBy(conflict.LocalData, record.Fields)
		conflict.RemoteTimestamp = record.UpdatedAt
		conflict.RemoteVersion = record.Version
		conflict.RemoteUser = record.UpdatedBy
	}
	return conflict, nil
}

// enqueueDerived re-applies fields over the record's current version. A
// conflict with no local fields came from a delete, and its re-apply is a
// delete too; a record the server lost entirely is re-created from scratch.
func (r *conflictResolver) enqueueDerived(ctx context.Context, conflict models.DataConflict, fields models.FieldChanges) (string, error) {
	operation := models.OperationUpdate
	switch {
	case conflict.RemoteVersion == 0:
		if len(fields) == 0 {
			// local wanted the record gone and the server already lost it
			return "", nil
		}
		operation = models.OperationCreate
	case len(conflict.LocalData) == 0:
		operation = models.OperationDelete
		fields = nil
	}

	mutation, err := r.queue.Enqueue(ctx, models.MutationInput{
		EntityType:  conflict.EntityType,
		EntityID:    conflict.EntityID,
		Operation:   operation,
		Payload:     fields,
		BaseVersion: conflict.RemoteVersion,
	})
	if err != nil {
		return "", fmt.Errorf("enqueue derived mutation: %w", err)
	}

	return mutation.ID, nil
}

// newDataConflict packages a parked mutation and the competing remote state
// into the diff handed to the user. The remote side is narrowed to the
// fields the local delta touches; a delete contests everything, so the full
// remote state is the diff then.
func newDataConflict(id string, m models.QueuedMutation, remote *models.EntityRecord) models.DataConflict {
	conflict := models.DataConflict{
		ID:             id,
		MutationID:     m.ID,
		EntityType:     m.EntityType,
		EntityID:       m.EntityID,
		LocalData:      m.Payload,
		LocalTimestamp: m.LocalTimestamp,
	}
	if remote != nil {
		conflict.RemoteData = remoteFieldsTouchedBy(m.Payload, remote.Fields)
		conflict.RemoteTimestamp = remote.UpdatedAt
		conflict.RemoteVersion = remote.Version
		conflict.RemoteUser = remote.UpdatedBy
	}
	return conflict
}

// mergeFields combines both sides of an event conflict: the older side forms
// the base and the newer side is overlaid on top, so for every contested
// field the most recent edit wins while untouched fields survive from either
// side.
func mergeFields(conflict models.DataConflict) models.FieldChanges {
	older, newer := conflict.RemoteData, conflict.LocalData
	if conflict.RemoteTimestamp.After(conflict.LocalTimestamp) {
		older, newer = conflict.LocalData, conflict.RemoteData
	}

	merged := make(models.FieldChanges, len(older)+len(newer))
	for k, v := range older {
		merged[k] = v
	}

	overlay := map[string]any(newer)
	if err := mergo.Map(&merged, overlay, mergo.WithOverride); err != nil {
		// fall back to a plain overlay; mergo only fails on type mismatches
		for k, v := range newer {
			merged[k] = v
		}
	}

	return merged
}
