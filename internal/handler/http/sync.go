package http

import (
	"encoding/json"
	"net/http"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/utils"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// applyMutations is the sync endpoint: it applies a batch of queued client
// mutations under optimistic concurrency and reports a per-mutation outcome.
// Conflicts and rejections come back inside the response body; an HTTP error
// status means the batch as a whole was not processed.
func (h *Handler) applyMutations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.applyMutations").Msg("no user ID was given")
		http.Error(w, "no user ID was given", http.StatusBadRequest)
		return
	}
	device, _ := utils.GetDeviceFromContext(ctx)

	var req models.ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Str("func", "*Handler.applyMutations").Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	if len(req.Mutations) == 0 {
		log.Error().Str("func", "*Handler.applyMutations").Msg("empty mutation batch")
		http.Error(w, "empty mutation batch", http.StatusBadRequest)
		return
	}

	resp, err := h.services.RecordService.ApplyBatch(ctx, userID, device, req)
	if err != nil {
		log.Err(err).Str("func", "*Handler.applyMutations").Msg("batch apply failed")
		http.Error(w, "batch apply failed", statusFromError(err))
		return
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}
