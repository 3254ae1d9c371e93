package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"securenotes/internal/apperr"
	"securenotes/internal/replication/model"
	"securenotes/internal/replication/service"
	"securenotes/pkg/logger"

	"github.com/google/uuid"
)

const defaultPullLimit = 100

type ReplicationHandler struct {
	Service *service.ReplicationService
}

func NewReplicationHandler(service *service.ReplicationService) *ReplicationHandler {
	return &ReplicationHandler{Service: service}
}

// PullEvents handles GET /replicate/events?user_id=&since_event_id=&limit=.
// An unknown or unparseable cursor restarts the stream from the beginning
// rather than failing.
func (h *ReplicationHandler) PullEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID := r.URL.Query().Get("user_id")
	if ownerID == "" {
		http.Error(w, "Missing user_id parameter", http.StatusBadRequest)
		return
	}

	var since *uuid.UUID
	if raw := r.URL.Query().Get("since_event_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			since = &id
		} else {
			logger.Sugar.Debugf("Unparseable since_event_id %q; restarting from the beginning", raw)
		}
	}

	limit := defaultPullLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.Service.Pull(ownerID, since, limit)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to pull events for %s: %v", ownerID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

// PushEvents handles POST /replicate/events. The replication token has
// already been verified against the raw body by the middleware; a body
// that passed authentication but is not a JSON array is a bad request.
// Entries are decoded one by one past this point, so a single bad entry
// never takes down the rest of the batch.
func (h *ReplicationHandler) PushEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var entries []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		http.Error(w, "Invalid JSON: expected an array of events", http.StatusBadRequest)
		return
	}

	applied, err := h.Service.PushRaw(entries)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to apply replication batch: %v", err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.PushResponse{Applied: applied})
}
