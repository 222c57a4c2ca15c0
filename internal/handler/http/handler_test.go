package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/config"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/service"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/store"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// memUserRepo and memRecordRepo are in-memory repositories backing the full
// handler -> service stack in tests, so requests exercise real routing,
// middleware, and outcome mapping.
type memUserRepo struct {
	users  map[string]models.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]models.User)}
}

func (r *memUserRepo) CreateUser(_ context.Context, user models.User) (models.User, error) {
	if _, taken := r.users[user.Login]; taken {
		return models.User{}, store.ErrLoginAlreadyExists
	}
	r.nextID++
	user.UserID = r.nextID
	user.CreatedAt = time.Now()
	r.users[user.Login] = user
	return user, nil
}

func (r *memUserRepo) FindUserByLogin(_ context.Context, user models.User) (models.User, error) {
	found, ok := r.users[user.Login]
	if !ok {
		return models.User{}, store.ErrNoUserWasFound
	}
	return found, nil
}

type recordKey struct {
	userID     int64
	entityType models.EntityType
	entityID   string
}

type memRecordRepo struct {
	records map[recordKey]models.EntityRecord
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{records: make(map[recordKey]models.EntityRecord)}
}

func (r *memRecordRepo) Apply(_ context.Context, userID int64, device string, mutation models.QueuedMutation) (models.EntityRecord, error) {
	key := recordKey{userID: userID, entityType: mutation.EntityType, entityID: mutation.EntityID}
	current, exists := r.records[key]
	now := time.Now()

	switch mutation.Operation {
	case models.OperationCreate:
		if exists {
			return current, store.ErrRecordAlreadyExists
		}
		created := models.EntityRecord{
			UserID:     userID,
			EntityType: mutation.EntityType,
			EntityID:   mutation.EntityID,
			Fields:     mutation.Payload,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
			UpdatedBy:  device,
		}
		r.records[key] = created
		return created, nil

	default:
		if !exists {
			return models.EntityRecord{}, store.ErrRecordNotFound
		}
		if current.Version != mutation.BaseVersion {
			return current, store.ErrVersionConflict
		}
		for k, v := range mutation.Payload {
			if current.Fields == nil {
				current.Fields = models.FieldChanges{}
			}
			current.Fields[k] = v
		}
		current.Version++
		current.UpdatedAt = now
		current.UpdatedBy = device
		current.Deleted = mutation.Operation == models.OperationDelete
		r.records[key] = current
		return current, nil
	}
}

func (r *memRecordRepo) GetRecord(_ context.Context, userID int64, entityType models.EntityType, entityID string) (models.EntityRecord, error) {
	record, ok := r.records[recordKey{userID: userID, entityType: entityType, entityID: entityID}]
	if !ok {
		return models.EntityRecord{}, store.ErrRecordNotFound
	}
	return record, nil
}

func (r *memRecordRepo) ListRecords(_ context.Context, userID int64, filter models.RecordFilter) ([]models.EntityRecord, error) {
	var out []models.EntityRecord
	for key, record := range r.records {
		if key.userID != userID {
			continue
		}
		if filter.EntityType != "" && key.entityType != filter.EntityType {
			continue
		}
		if !filter.Since.IsZero() && record.UpdatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type testEnv struct {
	server  *httptest.Server
	users   *memUserRepo
	records *memRecordRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMemUserRepo()
	records := newMemRecordRepo()
	log := logger.Nop()

	services := &service.Services{
		AuthService:   service.NewAuthService(users, testServerApp(), log),
		RecordService: service.NewRecordService(records, log),
	}

	handler := NewHandler(services, "1.0.0-test", log)
	server := httptest.NewServer(handler.Init())
	t.Cleanup(server.Close)

	return &testEnv{server: server, users: users, records: records}
}

func testServerApp() config.ServerApp {
	return config.ServerApp{
		PasswordHashKey: "pepper",
		TokenSignKey:    "test-sign-key",
		TokenIssuer:     "nestling-test",
		TokenDuration:   time.Hour,
	}
}

// registerDevice registers an account through the API and returns the bearer
// token issued to the device.
func (e *testEnv) registerDevice(t *testing.T, login, device string) string {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/api/user/register", "", models.RegisterRequest{
		Login:    login,
		Password: "s3cret",
		Name:     "Parent",
		Device:   device,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	authHeader := resp.Header.Get("Authorization")
	require.NotEmpty(t, authHeader)
	return authHeader
}

// do issues a request against the test server. body is JSON-encoded when
// non-nil; authHeader is attached verbatim when non-empty.
func (e *testEnv) do(t *testing.T, method, path, authHeader string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
