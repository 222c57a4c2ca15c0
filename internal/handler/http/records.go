package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/store"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/utils"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// getRecord returns the current server state of one record. The conflict
// resolver on the client uses it to pick up a fresh base version.
func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.getRecord").Msg("no user ID was given")
		http.Error(w, "no user ID was given", http.StatusBadRequest)
		return
	}

	entityType, ok := parseEntityType(chi.URLParam(r, "entityType"))
	if !ok {
		http.Error(w, "unknown entity type", http.StatusBadRequest)
		return
	}
	entityID := chi.URLParam(r, "entityID")

	record, err := h.services.RecordService.GetRecord(ctx, userID, entityType, entityID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}
		log.Err(err).Str("func", "*Handler.getRecord").Msg("record lookup failed")
		http.Error(w, "record lookup failed", statusFromError(err))
		return
	}

	utils.WriteJSON(w, record, http.StatusOK)
}

// listRecords returns the account's records, optionally narrowed by a
// "type" and an RFC 3339 "since" query parameter. A fresh device calls it
// to bootstrap its local cache; a returning device passes since to catch up.
func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.listRecords").Msg("no user ID was given")
		http.Error(w, "no user ID was given", http.StatusBadRequest)
		return
	}

	var filter models.RecordFilter
	if typeParam := r.URL.Query().Get("type"); typeParam != "" {
		entityType, ok := parseEntityType(typeParam)
		if !ok {
			http.Error(w, "unknown entity type", http.StatusBadRequest)
			return
		}
		filter.EntityType = entityType
	}
	if sinceParam := r.URL.Query().Get("since"); sinceParam != "" {
		since, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			http.Error(w, "invalid since parameter, expected RFC 3339", http.StatusBadRequest)
			return
		}
		filter.Since = since
	}

	records, err := h.services.RecordService.ListRecords(ctx, userID, filter)
	if err != nil {
		log.Err(err).Str("func", "*Handler.listRecords").Msg("record listing failed")
		http.Error(w, "record listing failed", statusFromError(err))
		return
	}

	utils.WriteJSON(w, records, http.StatusOK)
}

func parseEntityType(raw string) (models.EntityType, bool) {
	entityType := models.EntityType(raw)
	switch entityType {
	case models.EntityEvent, models.EntityBaby, models.EntitySettings, models.EntityMedication, models.EntityMilestone:
		return entityType, true
	default:
		return "", false
	}
}
