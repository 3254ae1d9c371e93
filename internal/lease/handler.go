package handler

import (
	"encoding/json"
	"net/http"

	"securenotes/internal/apperr"
	"securenotes/internal/lease/service"
	"securenotes/middleware"
	"securenotes/pkg/logger"

	"github.com/google/uuid"
)

type LeaseHandler struct {
	Service *service.LeaseService
}

func NewLeaseHandler(service *service.LeaseService) *LeaseHandler {
	return &LeaseHandler{Service: service}
}

// AcquireLease handles POST /api/documents/lock?docId=. When a lease is
// already active the existing lease comes back unchanged; callers that need
// exclusivity by identity compare holder_id themselves.
func (h *LeaseHandler) AcquireLease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID, ok := docIDParam(w, r)
	if !ok {
		return
	}
	userID := r.Context().Value(middleware.UserIDKey).(string)

	lease, err := h.Service.Acquire(userID, docID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to acquire lease on %s: %v", docID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lease)
}

// ReleaseLease handles POST /api/documents/unlock?docId=. Releasing twice
// in a row succeeds both times.
func (h *LeaseHandler) ReleaseLease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID, ok := docIDParam(w, r)
	if !ok {
		return
	}
	userID := r.Context().Value(middleware.UserIDKey).(string)

	if err := h.Service.Release(userID, docID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to release lease on %s: %v", docID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"released": true})
}

func docIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("docId")
	if raw == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return uuid.UUID{}, false
	}
	docID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "Invalid docId parameter", http.StatusBadRequest)
		return uuid.UUID{}, false
	}
	return docID, true
}
