package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

func seedRecord(env *testEnv, userID int64, entityType models.EntityType, entityID string, updatedAt time.Time) {
	env.records.records[recordKey{userID: userID, entityType: entityType, entityID: entityID}] = models.EntityRecord{
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		Fields:     models.FieldChanges{"kind": "feeding"},
		Version:    1,
		UpdatedAt:  updatedAt,
	}
}

func TestGetRecord(t *testing.T) {
	env := newTestEnv(t)
	auth := env.registerDevice(t, "parent@example.com", "moms-phone")
	seedRecord(env, 1, models.EntityEvent, "evt-1", time.Now())

	resp := env.do(t, http.MethodGet, "/api/records/event/evt-1", auth, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	record := decodeBody[models.EntityRecord](t, resp)
	assert.Equal(t, "evt-1", record.EntityID)
	assert.Equal(t, int64(1), record.Version)
}

func TestGetRecord_NotFound(t *testing.T) {
	env := newTestEnv(t)
	auth := env.registerDevice(t, "parent@example.com", "moms-phone")

	resp := env.do(t, http.MethodGet, "/api/records/event/missing", auth, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetRecord_UnknownEntityType(t *testing.T) {
	env := newTestEnv(t)
	auth := env.registerDevice(t, "parent@example.com", "moms-phone")

	resp := env.do(t, http.MethodGet, "/api/records/diary/evt-1", auth, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListRecords_FiltersByTypeAndSince(t *testing.T) {
	env := newTestEnv(t)
	auth := env.registerDevice(t, "parent@example.com", "moms-phone")

	old := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	seedRecord(env, 1, models.EntityEvent, "evt-old", old)
	seedRecord(env, 1, models.EntityEvent, "evt-new", recent)
	seedRecord(env, 1, models.EntityBaby, "baby-1", recent)

	resp := env.do(t, http.MethodGet, "/api/records?type=event&since=2026-08-15T00:00:00Z", auth, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	records := decodeBody[[]models.EntityRecord](t, resp)
	require.Len(t, records, 1)
	assert.Equal(t, "evt-new", records[0].EntityID)
}

func TestListRecords_All(t *testing.T) {
	env := newTestEnv(t)
	auth := env.registerDevice(t, "parent@example.com", "moms-phone")
	seedRecord(env, 1, models.EntityEvent, "evt-1", time.Now())
	seedRecord(env, 1, models.EntityBaby, "baby-1", time.Now())

	resp := env.do(t, http.MethodGet, "/api/records", auth, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	records := decodeBody[[]models.EntityRecord](t, resp)
	assert.Len(t, records, 2)
}

func TestListRecords_InvalidSince(t *testing.T) {
	env := newTestEnv(t)
	auth := env.registerDevice(t, "parent@example.com", "moms-phone")

	resp := env.do(t, http.MethodGet, "/api/records?since=yesterday", auth, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
