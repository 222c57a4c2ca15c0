package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/store"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// fakeQueueRepo is a hand-written in-memory store.QueueRepository. It keeps
// mutations in enqueue order and mimics the repository's guarded status
// transitions, which is enough to drive the queue and engine without a real
// database.
type fakeQueueRepo struct {
	mutations []models.QueuedMutation
	nextSeq   int64

	insertErr error
}

func (f *fakeQueueRepo) Insert(_ context.Context, m models.QueuedMutation) (models.QueuedMutation, error) {
	if f.insertErr != nil {
		return models.QueuedMutation{}, f.insertErr
	}
	f.nextSeq++
	m.Seq = f.nextSeq
	m.Status = models.StatusPending
	f.mutations = append(f.mutations, m)
	return m, nil
}

func (f *fakeQueueRepo) GetByID(_ context.Context, id string) (models.QueuedMutation, error) {
	for _, m := range f.mutations {
		if m.ID == id {
			return m, nil
		}
	}
	return models.QueuedMutation{}, store.ErrMutationNotFound
}

func (f *fakeQueueRepo) NextBatch(_ context.Context, now time.Time, limit int) ([]models.QueuedMutation, error) {
	conflicted := make(map[string]bool)
	headSeen := make(map[string]bool)
	for _, m := range f.mutations {
		if m.Status == models.StatusConflicted {
			conflicted[entityKey(m)] = true
		}
	}

	var batch []models.QueuedMutation
	for _, m := range f.mutations {
		key := entityKey(m)
		switch m.Status {
		case models.StatusPending, models.StatusInFlight:
		default:
			continue
		}
		isHead := !headSeen[key]
		headSeen[key] = true

		if m.Status != models.StatusPending || !isHead || conflicted[key] || m.NextAttemptAt.After(now) {
			continue
		}
		batch = append(batch, m)
		if len(batch) == limit {
			break
		}
	}
	return batch, nil
}

func (f *fakeQueueRepo) MarkInFlight(_ context.Context, id string) (bool, error) {
	return f.transition(id, models.StatusInFlight, models.StatusPending), nil
}

func (f *fakeQueueRepo) MarkApplied(_ context.Context, id string) (bool, error) {
	return f.transition(id, models.StatusApplied, models.StatusPending, models.StatusInFlight), nil
}

func (f *fakeQueueRepo) MarkFailed(_ context.Context, id string, reason string) (bool, error) {
	changed := f.transition(id, models.StatusFailed, models.StatusPending, models.StatusInFlight)
	if changed {
		f.setError(id, reason)
	}
	return changed, nil
}

func (f *fakeQueueRepo) MarkConflicted(_ context.Context, id string, reason string) (bool, error) {
	changed := f.transition(id, models.StatusConflicted, models.StatusPending, models.StatusInFlight)
	if changed {
		f.setError(id, reason)
	}
	return changed, nil
}

func (f *fakeQueueRepo) ScheduleRetry(_ context.Context, id string, reason string, nextAttemptAt time.Time) (bool, error) {
	for i := range f.mutations {
		m := &f.mutations[i]
		if m.ID != id || (m.Status != models.StatusPending && m.Status != models.StatusInFlight) {
			continue
		}
		m.Status = models.StatusPending
		m.AttemptCount++
		m.LastError = &reason
		m.NextAttemptAt = nextAttemptAt
		return true, nil
	}
	return false, nil
}

func (f *fakeQueueRepo) DiscardConflicted(_ context.Context, id string) (bool, error) {
	for i, m := range f.mutations {
		if m.ID == id && m.Status == models.StatusConflicted {
			f.mutations = append(f.mutations[:i], f.mutations[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeQueueRepo) RetryFailed(_ context.Context, now time.Time) (int64, error) {
	var revived int64
	for i := range f.mutations {
		m := &f.mutations[i]
		if m.Status != models.StatusFailed {
			continue
		}
		m.Status = models.StatusPending
		m.AttemptCount = 0
		m.LastError = nil
		m.NextAttemptAt = now
		revived++
	}
	return revived, nil
}

func (f *fakeQueueRepo) ListByStatus(_ context.Context, status models.MutationStatus) ([]models.QueuedMutation, error) {
	var out []models.QueuedMutation
	for _, m := range f.mutations {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeQueueRepo) CountsByStatus(_ context.Context) (map[models.MutationStatus]int, error) {
	counts := make(map[models.MutationStatus]int)
	for _, m := range f.mutations {
		counts[m.Status]++
	}
	return counts, nil
}

func (f *fakeQueueRepo) PendingByType(_ context.Context) (map[models.EntityType]int, error) {
	counts := make(map[models.EntityType]int)
	for _, m := range f.mutations {
		if m.Status == models.StatusPending {
			counts[m.EntityType]++
		}
	}
	return counts, nil
}

func (f *fakeQueueRepo) PurgeApplied(_ context.Context, before time.Time) (int64, error) {
	var kept []models.QueuedMutation
	var purged int64
	for _, m := range f.mutations {
		if m.Status == models.StatusApplied && m.LocalTimestamp.Before(before) {
			purged++
			continue
		}
		kept = append(kept, m)
	}
	f.mutations = kept
	return purged, nil
}

func (f *fakeQueueRepo) transition(id string, to models.MutationStatus, from ...models.MutationStatus) bool {
	for i := range f.mutations {
		m := &f.mutations[i]
		if m.ID != id {
			continue
		}
		for _, s := range from {
			if m.Status == s {
				m.Status = to
				return true
			}
		}
		return false
	}
	return false
}

func (f *fakeQueueRepo) setError(id string, reason string) {
	for i := range f.mutations {
		if f.mutations[i].ID == id {
			f.mutations[i].LastError = &reason
		}
	}
}

func (f *fakeQueueRepo) statusOf(id string) models.MutationStatus {
	for _, m := range f.mutations {
		if m.ID == id {
			return m.Status
		}
	}
	return ""
}

func entityKey(m models.QueuedMutation) string {
	return string(m.EntityType) + "/" + m.EntityID
}

func newTestQueue(repo *fakeQueueRepo) *mutationQueue {
	return NewMutationQueue(repo, 50, logger.Nop()).(*mutationQueue)
}

// ── Enqueue ─────────────────────────────────────────────────────────────────

func TestEnqueue_AssignsIdentityAndTimestamps(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := newTestQueue(repo)
	fixed := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return fixed }

	saved, err := q.Enqueue(context.Background(), models.MutationInput{
		EntityType:  models.EntityEvent,
		EntityID:    "evt-1",
		Operation:   models.OperationUpdate,
		Payload:     models.FieldChanges{"note": "fed 120ml"},
		BaseVersion: 2,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, int64(1), saved.Seq)
	assert.Equal(t, models.StatusPending, saved.Status)
	assert.Equal(t, fixed, saved.LocalTimestamp)
	assert.Equal(t, fixed, saved.NextAttemptAt, "fresh mutations are eligible immediately")
	assert.Zero(t, saved.AttemptCount)
}

func TestEnqueue_PreservesQueueOrder(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := newTestQueue(repo)

	for _, note := range []string{"first", "second", "third"} {
		_, err := q.Enqueue(context.Background(), models.MutationInput{
			EntityType:  models.EntityEvent,
			EntityID:    "evt-" + note,
			Operation:   models.OperationCreate,
			Payload:     models.FieldChanges{"note": note},
			BaseVersion: 0,
		})
		require.NoError(t, err)
	}

	batch, err := q.NextBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "first", batch[0].Payload["note"])
	assert.Equal(t, "second", batch[1].Payload["note"])
	assert.Equal(t, "third", batch[2].Payload["note"])
}

func TestEnqueue_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input models.MutationInput
	}{
		{
			name: "unknown entity type",
			input: models.MutationInput{
				EntityType: "diary",
				EntityID:   "x",
				Operation:  models.OperationCreate,
				Payload:    models.FieldChanges{"a": 1},
			},
		},
		{
			name: "empty entity id",
			input: models.MutationInput{
				EntityType: models.EntityEvent,
				Operation:  models.OperationCreate,
				Payload:    models.FieldChanges{"a": 1},
			},
		},
		{
			name: "create without payload",
			input: models.MutationInput{
				EntityType: models.EntityEvent,
				EntityID:   "x",
				Operation:  models.OperationCreate,
			},
		},
		{
			name: "create with nonzero base version",
			input: models.MutationInput{
				EntityType:  models.EntityEvent,
				EntityID:    "x",
				Operation:   models.OperationCreate,
				Payload:     models.FieldChanges{"a": 1},
				BaseVersion: 3,
			},
		},
		{
			name: "update without base version",
			input: models.MutationInput{
				EntityType: models.EntityEvent,
				EntityID:   "x",
				Operation:  models.OperationUpdate,
				Payload:    models.FieldChanges{"a": 1},
			},
		},
		{
			name: "delete without base version",
			input: models.MutationInput{
				EntityType: models.EntityEvent,
				EntityID:   "x",
				Operation:  models.OperationDelete,
			},
		},
		{
			name: "unknown operation",
			input: models.MutationInput{
				EntityType: models.EntityEvent,
				EntityID:   "x",
				Operation:  "upsert",
				Payload:    models.FieldChanges{"a": 1},
			},
		},
	}

	q := newTestQueue(&fakeQueueRepo{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := q.Enqueue(context.Background(), tt.input)
			require.ErrorIs(t, err, ErrInvalidMutation)
		})
	}
}

// ── Eligibility (FIFO per entity, conflict wall) ────────────────────────────

func TestNextBatch_HeadOfLinePerEntity(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := newTestQueue(repo)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, models.MutationInput{
		EntityType: models.EntityEvent, EntityID: "evt-1",
		Operation: models.OperationCreate, Payload: models.FieldChanges{"kind": "feeding"},
	})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, models.MutationInput{
		EntityType: models.EntityEvent, EntityID: "evt-1",
		Operation: models.OperationUpdate, Payload: models.FieldChanges{"note": "more"}, BaseVersion: 1,
	})
	require.NoError(t, err)
	other, err := q.Enqueue(ctx, models.MutationInput{
		EntityType: models.EntityBaby, EntityID: "baby-1",
		Operation: models.OperationUpdate, Payload: models.FieldChanges{"name": "Mia"}, BaseVersion: 1,
	})
	require.NoError(t, err)

	batch, err := q.NextBatch(ctx)
	require.NoError(t, err)

	// only the head of evt-1's line plus the unrelated entity
	require.Len(t, batch, 2)
	assert.Equal(t, first.ID, batch[0].ID)
	assert.Equal(t, other.ID, batch[1].ID)
}

func TestNextBatch_ConflictBlocksEntity(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := newTestQueue(repo)
	ctx := context.Background()

	head, err := q.Enqueue(ctx, models.MutationInput{
		EntityType: models.EntityEvent, EntityID: "evt-1",
		Operation: models.OperationUpdate, Payload: models.FieldChanges{"note": "a"}, BaseVersion: 1,
	})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, models.MutationInput{
		EntityType: models.EntityEvent, EntityID: "evt-1",
		Operation: models.OperationUpdate, Payload: models.FieldChanges{"note": "b"}, BaseVersion: 1,
	})
	require.NoError(t, err)

	require.NoError(t, q.MarkInFlight(ctx, head.ID))
	require.NoError(t, q.MarkConflicted(ctx, head.ID, "base version is stale"))

	batch, err := q.NextBatch(ctx)
	require.NoError(t, err)
	assert.Empty(t, batch, "conflicted entity must not sync further mutations")

	// resolving the conflict unblocks the entity
	require.NoError(t, q.DiscardConflicted(ctx, head.ID))
	batch, err = q.NextBatch(ctx)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestDiscardConflicted_ReportsWhyNothingChanged(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := newTestQueue(repo)
	ctx := context.Background()

	m, err := q.Enqueue(ctx, models.MutationInput{
		EntityType: models.EntityEvent, EntityID: "evt-1",
		Operation: models.OperationCreate, Payload: models.FieldChanges{"kind": "feeding"},
	})
	require.NoError(t, err)

	err = q.DiscardConflicted(ctx, m.ID)
	require.ErrorIs(t, err, ErrInvalidMutation, "a pending mutation is not discardable")
	assert.Contains(t, err.Error(), "pending")

	err = q.DiscardConflicted(ctx, "never-existed")
	require.ErrorIs(t, err, store.ErrMutationNotFound)
}

// ── Stats ───────────────────────────────────────────────────────────────────

func TestStats_ConservationAcrossStatuses(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := newTestQueue(repo)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		m, err := q.Enqueue(ctx, models.MutationInput{
			EntityType: models.EntityEvent, EntityID: "evt-" + string(rune('a'+i)),
			Operation: models.OperationCreate, Payload: models.FieldChanges{"n": i},
		})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	require.NoError(t, q.MarkInFlight(ctx, ids[0]))
	require.NoError(t, q.MarkApplied(ctx, ids[0]))
	require.NoError(t, q.MarkInFlight(ctx, ids[1]))
	require.NoError(t, q.MarkFailed(ctx, ids[1], "gave up"))
	require.NoError(t, q.MarkConflicted(ctx, ids[2], "stale"))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.AppliedCount)
	assert.Equal(t, 1, stats.FailedCount)
	assert.Equal(t, 1, stats.ConflictedCount)
	assert.Equal(t, 1, stats.PendingCount)

	total := stats.AppliedCount + stats.FailedCount + stats.ConflictedCount + stats.PendingCount
	assert.Equal(t, len(ids), total, "every enqueued mutation must be accounted for")
}

func TestMarkApplied_IdempotentAtServiceLevel(t *testing.T) {
	repo := &fakeQueueRepo{}
	q := newTestQueue(repo)
	ctx := context.Background()

	m, err := q.Enqueue(ctx, models.MutationInput{
		EntityType: models.EntityEvent, EntityID: "evt-1",
		Operation: models.OperationCreate, Payload: models.FieldChanges{"kind": "sleep"},
	})
	require.NoError(t, err)

	require.NoError(t, q.MarkInFlight(ctx, m.ID))
	require.NoError(t, q.MarkApplied(ctx, m.ID))
	require.NoError(t, q.MarkApplied(ctx, m.ID))
	require.NoError(t, q.MarkFailed(ctx, m.ID, "late failure report"))

	assert.Equal(t, models.StatusApplied, repo.statusOf(m.ID), "settled mutations must stay settled")
}
