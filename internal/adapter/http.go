package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/config"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/utils"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

type httpRemoteStore struct {
	client *resty.Client

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPRemoteStore constructs an HTTP/REST implementation of [RemoteStore].
// It normalises and validates the base URL from cfg.BaseURL and configures
// the underlying HTTP client with the resolved base URL and request timeout.
//
// Returns an error if cfg.BaseURL is empty or cannot be parsed as a valid
// URL.
func NewHTTPRemoteStore(cfg config.ClientAdapter, logger *logger.Logger) (RemoteStore, error) {
	baseURL, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter base url: %w", err)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.RequestTimeout)

	return &httpRemoteStore{client: client, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [RemoteStore]. It stores token (whitespace-trimmed)
// for use in the Authorization header of all subsequent authenticated
// requests.
func (h *httpRemoteStore) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token implements [RemoteStore]. It returns the bearer token currently held
// by the adapter, or an empty string if none has been set.
func (h *httpRemoteStore) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Register implements [RemoteStore]. It POSTs the account credentials and
// device label to POST /api/user/register. On success the bearer token is
// extracted from the Authorization response header and stored via SetToken.
func (h *httpRemoteStore) Register(ctx context.Context, req models.RegisterRequest) (models.Token, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/user/register")
	if err != nil {
		return models.Token{}, fmt.Errorf("register request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Token{}, err
	}

	return h.adoptToken(resp, "register")
}

// Login implements [RemoteStore]. It POSTs the credentials to
// POST /api/user/login. On success the bearer token is extracted from the
// Authorization response header and stored via SetToken.
func (h *httpRemoteStore) Login(ctx context.Context, req models.LoginRequest) (models.Token, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/user/login")
	if err != nil {
		return models.Token{}, fmt.Errorf("login request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Token{}, err
	}

	return h.adoptToken(resp, "login")
}

// ApplyBatch implements [RemoteStore]. It sets req.Length and POSTs the
// batch to POST /api/sync/mutations. Requires a valid bearer token. The
// returned response carries one result per mutation in request order;
// conflicts arrive inside those results, not as an error.
func (h *httpRemoteStore) ApplyBatch(ctx context.Context, req models.ApplyRequest) (models.ApplyResponse, error) {
	req.Length = len(req.Mutations)

	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/sync/mutations")
	if err != nil {
		return models.ApplyResponse{}, fmt.Errorf("apply batch request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.ApplyResponse{}, err
	}

	var applied models.ApplyResponse
	if err = json.Unmarshal(resp.Body(), &applied); err != nil {
		return models.ApplyResponse{}, fmt.Errorf("decode apply response: %w", err)
	}

	return applied, nil
}

// FetchRecord implements [RemoteStore]. It GETs
// GET /api/records/{type}/{id} and decodes the record. Requires a valid
// bearer token.
func (h *httpRemoteStore) FetchRecord(ctx context.Context, entityType models.EntityType, entityID string) (models.EntityRecord, error) {
	resp, err := h.authedRequest(ctx).
		SetPathParam("type", string(entityType)).
		SetPathParam("id", entityID).
		Get("/api/records/{type}/{id}")
	if err != nil {
		return models.EntityRecord{}, fmt.Errorf("fetch record request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.EntityRecord{}, err
	}

	var record models.EntityRecord
	if err = json.Unmarshal(resp.Body(), &record); err != nil {
		return models.EntityRecord{}, fmt.Errorf("decode record response: %w", err)
	}

	return record, nil
}

// ListRecords implements [RemoteStore]. It GETs GET /api/records with
// optional type and since query params and decodes the listing. Requires a
// valid bearer token.
func (h *httpRemoteStore) ListRecords(ctx context.Context, filter models.RecordFilter) ([]models.EntityRecord, error) {
	req := h.authedRequest(ctx)
	if filter.EntityType != "" {
		req.SetQueryParam("type", string(filter.EntityType))
	}
	if !filter.Since.IsZero() {
		req.SetQueryParam("since", filter.Since.UTC().Format("2006-01-02T15:04:05Z07:00"))
	}

	resp, err := req.Get("/api/records")
	if err != nil {
		return nil, fmt.Errorf("list records request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var records []models.EntityRecord
	if err = json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("decode records response: %w", err)
	}

	return records, nil
}

// Ping implements [RemoteStore]. It GETs the unauthenticated
// GET /api/health endpoint.
func (h *httpRemoteStore) Ping(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return fmt.Errorf("%w: %s", ErrServerUnavailable, err)
	}

	return mapHTTPError(resp)
}

func (h *httpRemoteStore) adoptToken(resp *resty.Response, op string) (models.Token, error) {
	token, err := utils.ParseBearerToken(resp.Header().Get("Authorization"))
	if err != nil {
		return models.Token{}, fmt.Errorf("%s parse bearer token: %w", op, err)
	}

	userID, err := utils.ParseUserIDFromJWT(token)
	if err != nil {
		return models.Token{}, fmt.Errorf("%s parse user id: %w", op, err)
	}

	h.SetToken(token)
	return models.Token{SignedString: token, UserID: userID}, nil
}

func (h *httpRemoteStore) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}
