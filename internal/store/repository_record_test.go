package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

func newTestRecordRepo(t *testing.T) (*recordRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	l := logger.Nop()
	repo := &recordRepository{
		db:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func recordRows(version int64, fields string, deleted bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.
		NewRows([]string{"user_id", "entity_type", "entity_id", "fields", "version", "deleted", "created_at", "updated_at", "updated_by"}).
		AddRow(1, "event", "evt-1", []byte(fields), version, deleted, now, now, "phone-anna")
}

func TestRecordApply_UpdateSuccess(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mutation := models.QueuedMutation{
		EntityType:  models.EntityEvent,
		EntityID:    "evt-1",
		Operation:   models.OperationUpdate,
		Payload:     models.FieldChanges{"note": "fed 120ml"},
		BaseVersion: 3,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id").
		WithArgs(int64(1), "event", "evt-1").
		WillReturnRows(recordRows(3, `{"note":"fed 90ml","kind":"feeding"}`, false))
	mock.ExpectQuery("UPDATE records").
		WillReturnRows(recordRows(4, `{"note":"fed 120ml","kind":"feeding"}`, false))
	mock.ExpectCommit()

	applied, err := repo.Apply(context.Background(), 1, "phone-anna", mutation)
	require.NoError(t, err)
	assert.Equal(t, int64(4), applied.Version)
	assert.Equal(t, "fed 120ml", applied.Fields["note"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordApply_UpdateVersionConflict(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mutation := models.QueuedMutation{
		EntityType:  models.EntityEvent,
		EntityID:    "evt-1",
		Operation:   models.OperationUpdate,
		Payload:     models.FieldChanges{"note": "stale edit"},
		BaseVersion: 2,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id").
		WithArgs(int64(1), "event", "evt-1").
		WillReturnRows(recordRows(5, `{"note":"fresh remote"}`, false))
	mock.ExpectRollback()

	remote, err := repo.Apply(context.Background(), 1, "tablet-ben", mutation)
	require.ErrorIs(t, err, ErrVersionConflict)

	// the caller gets the current remote state to build the conflict from
	assert.Equal(t, int64(5), remote.Version)
	assert.Equal(t, "fresh remote", remote.Fields["note"])
	assert.Equal(t, "phone-anna", remote.UpdatedBy)
}

func TestRecordApply_CreateAlreadyExists(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mutation := models.QueuedMutation{
		EntityType: models.EntityEvent,
		EntityID:   "evt-1",
		Operation:  models.OperationCreate,
		Payload:    models.FieldChanges{"kind": "sleep"},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id").
		WillReturnRows(recordRows(1, `{"kind":"feeding"}`, false))
	mock.ExpectRollback()

	remote, err := repo.Apply(context.Background(), 1, "tablet-ben", mutation)
	require.ErrorIs(t, err, ErrRecordAlreadyExists)
	assert.Equal(t, int64(1), remote.Version)
}

func TestRecordApply_CreateSuccess(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mutation := models.QueuedMutation{
		EntityType: models.EntityEvent,
		EntityID:   "evt-1",
		Operation:  models.OperationCreate,
		Payload:    models.FieldChanges{"kind": "feeding"},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO records").
		WillReturnRows(recordRows(1, `{"kind":"feeding"}`, false))
	mock.ExpectCommit()

	applied, err := repo.Apply(context.Background(), 1, "phone-anna", mutation)
	require.NoError(t, err)
	assert.Equal(t, int64(1), applied.Version)
}

func TestRecordApply_UpdateMissingRecord(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mutation := models.QueuedMutation{
		EntityType:  models.EntityEvent,
		EntityID:    "evt-gone",
		Operation:   models.OperationUpdate,
		Payload:     models.FieldChanges{"note": "orphan edit"},
		BaseVersion: 1,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Apply(context.Background(), 1, "phone-anna", mutation)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordApply_DeleteSuccess(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mutation := models.QueuedMutation{
		EntityType:  models.EntityEvent,
		EntityID:    "evt-1",
		Operation:   models.OperationDelete,
		BaseVersion: 4,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id").
		WillReturnRows(recordRows(4, `{"kind":"feeding"}`, false))
	mock.ExpectQuery("UPDATE records").
		WillReturnRows(recordRows(5, `{"kind":"feeding"}`, true))
	mock.ExpectCommit()

	applied, err := repo.Apply(context.Background(), 1, "phone-anna", mutation)
	require.NoError(t, err)
	assert.True(t, applied.Deleted)
	assert.Equal(t, int64(5), applied.Version)
}

func TestGetRecord_NotFound(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT user_id").
		WithArgs("evt-404", "event", int64(1)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetRecord(context.Background(), 1, models.EntityEvent, "evt-404")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestListRecords_Filtered(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT user_id").
		WithArgs(int64(1), "event", since).
		WillReturnRows(recordRows(2, `{"kind":"feeding"}`, false))

	records, err := repo.ListRecords(context.Background(), 1, models.RecordFilter{
		EntityType: models.EntityEvent,
		Since:      since,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.EntityEvent, records[0].EntityType)
}

func TestListRecords_QueryError(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT user_id").
		WillReturnError(errors.New("db down"))

	_, err := repo.ListRecords(context.Background(), 1, models.RecordFilter{})
	require.ErrorIs(t, err, ErrExecutingQuery)
}
