package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/store"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// stubRecordRepo scripts Apply outcomes per mutation id.
type stubRecordRepo struct {
	outcomes map[string]recordOutcome
	applied  []models.QueuedMutation
	devices  []string
}

type recordOutcome struct {
	record models.EntityRecord
	err    error
}

func (r *stubRecordRepo) Apply(_ context.Context, _ int64, device string, mutation models.QueuedMutation) (models.EntityRecord, error) {
	r.applied = append(r.applied, mutation)
	r.devices = append(r.devices, device)
	out := r.outcomes[mutation.ID]
	return out.record, out.err
}

func (r *stubRecordRepo) GetRecord(_ context.Context, _ int64, _ models.EntityType, entityID string) (models.EntityRecord, error) {
	out, ok := r.outcomes[entityID]
	if !ok {
		return models.EntityRecord{}, store.ErrRecordNotFound
	}
	return out.record, out.err
}

func (r *stubRecordRepo) ListRecords(context.Context, int64, models.RecordFilter) ([]models.EntityRecord, error) {
	return nil, nil
}

func applyMutation(id string, op models.Operation) models.QueuedMutation {
	return models.QueuedMutation{
		ID:         id,
		EntityType: models.EntityEvent,
		EntityID:   "evt-" + id,
		Operation:  op,
		Payload:    models.FieldChanges{"kind": "feeding"},
	}
}

func TestApplyBatch_MapsEveryOutcome(t *testing.T) {
	conflictState := models.EntityRecord{
		EntityID:  "evt-m2",
		Version:   7,
		Fields:    models.FieldChanges{"kind": "sleep"},
		UpdatedBy: "papas-phone",
	}
	repo := &stubRecordRepo{outcomes: map[string]recordOutcome{
		"m1": {record: models.EntityRecord{Version: 2}},
		"m2": {record: conflictState, err: store.ErrVersionConflict},
		"m3": {err: store.ErrRecordNotFound},
	}}
	svc := NewRecordService(repo, logger.Nop())

	resp, err := svc.ApplyBatch(context.Background(), 1, "moms-phone", models.ApplyRequest{
		Mutations: []models.QueuedMutation{
			applyMutation("m1", models.OperationUpdate),
			applyMutation("m2", models.OperationUpdate),
			applyMutation("m3", models.OperationDelete),
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 3, resp.Length)

	assert.Equal(t, models.ApplyOK, resp.Results[0].Status)
	assert.Equal(t, int64(2), resp.Results[0].NewVersion)

	assert.Equal(t, models.ApplyConflict, resp.Results[1].Status)
	require.NotNil(t, resp.Results[1].Remote)
	assert.Equal(t, int64(7), resp.Results[1].Remote.Version)
	assert.Equal(t, "papas-phone", resp.Results[1].Remote.UpdatedBy,
		"conflicts must carry the current remote state for the client diff")

	assert.Equal(t, models.ApplyError, resp.Results[2].Status)
	assert.Equal(t, "record does not exist", resp.Results[2].Error)

	// every apply ran under the caller's device attribution
	assert.Equal(t, []string{"moms-phone", "moms-phone", "moms-phone"}, repo.devices)
}

func TestApplyBatch_CreateCollisionIsConflict(t *testing.T) {
	existing := models.EntityRecord{EntityID: "evt-m1", Version: 1}
	repo := &stubRecordRepo{outcomes: map[string]recordOutcome{
		"m1": {record: existing, err: store.ErrRecordAlreadyExists},
	}}
	svc := NewRecordService(repo, logger.Nop())

	resp, err := svc.ApplyBatch(context.Background(), 1, "dev", models.ApplyRequest{
		Mutations: []models.QueuedMutation{applyMutation("m1", models.OperationCreate)},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, models.ApplyConflict, resp.Results[0].Status)
	require.NotNil(t, resp.Results[0].Remote)
	assert.Equal(t, int64(1), resp.Results[0].Remote.Version)
}

func TestApplyBatch_ValidationFailuresDoNotReachTheStore(t *testing.T) {
	repo := &stubRecordRepo{outcomes: map[string]recordOutcome{}}
	svc := NewRecordService(repo, logger.Nop())

	bad := applyMutation("m1", "upsert")
	missingEntity := applyMutation("m2", models.OperationUpdate)
	missingEntity.EntityID = ""

	resp, err := svc.ApplyBatch(context.Background(), 1, "dev", models.ApplyRequest{
		Mutations: []models.QueuedMutation{bad, missingEntity},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, models.ApplyError, resp.Results[0].Status)
	assert.Contains(t, resp.Results[0].Error, "upsert")
	assert.Equal(t, models.ApplyError, resp.Results[1].Status)
	assert.Empty(t, repo.applied, "invalid mutations must be rejected before hitting storage")
}

func TestApplyBatch_StorageFailureAbortsBatch(t *testing.T) {
	repo := &stubRecordRepo{outcomes: map[string]recordOutcome{
		"m1": {err: errors.New("connection reset")},
	}}
	svc := NewRecordService(repo, logger.Nop())

	_, err := svc.ApplyBatch(context.Background(), 1, "dev", models.ApplyRequest{
		Mutations: []models.QueuedMutation{applyMutation("m1", models.OperationUpdate)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m1")
}

func TestApplyBatch_PreservesRequestOrder(t *testing.T) {
	repo := &stubRecordRepo{outcomes: map[string]recordOutcome{
		"m1": {record: models.EntityRecord{Version: 1}},
		"m2": {record: models.EntityRecord{Version: 2}},
		"m3": {record: models.EntityRecord{Version: 3}},
	}}
	svc := NewRecordService(repo, logger.Nop())

	resp, err := svc.ApplyBatch(context.Background(), 1, "dev", models.ApplyRequest{
		Mutations: []models.QueuedMutation{
			applyMutation("m1", models.OperationCreate),
			applyMutation("m2", models.OperationUpdate),
			applyMutation("m3", models.OperationUpdate),
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	for i, id := range []string{"m1", "m2", "m3"} {
		assert.Equal(t, id, resp.Results[i].MutationID)
	}
}
