package handler

import (
	"encoding/json"
	"net/http"

	"securenotes/internal/apperr"
	docmodel "securenotes/internal/document/model"
	"securenotes/internal/share/model"
	"securenotes/internal/share/service"
	"securenotes/middleware"
	"securenotes/pkg/logger"

	"github.com/google/uuid"
)

type ShareHandler struct {
	Service *service.ShareService
}

func NewShareHandler(service *service.ShareService) *ShareHandler {
	return &ShareHandler{Service: service}
}

// CreateShare handles POST /api/shares/create?docId=.
func (h *ShareHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID, ok := uuidParam(w, r, "docId")
	if !ok {
		return
	}
	userID := r.Context().Value(middleware.UserIDKey).(string)

	var req model.CreateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	share, err := h.Service.Create(userID, docID, req)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to create share: %v", err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(share)
}

// RevokeShare handles POST /api/shares/revoke?shareId=.
func (h *ShareHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	shareID, ok := uuidParam(w, r, "shareId")
	if !ok {
		return
	}
	userID := r.Context().Value(middleware.UserIDKey).(string)

	if err := h.Service.Revoke(userID, shareID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to revoke share %s: %v", shareID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"revoked": true})
}

// GetSharedDocument handles GET /api/shares/get?shareId=.
func (h *ShareHandler) GetSharedDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	shareID, ok := uuidParam(w, r, "shareId")
	if !ok {
		return
	}
	userID := r.Context().Value(middleware.UserIDKey).(string)

	doc, err := h.Service.GetDocument(shareID, userID)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

// AcquireSharedLease handles POST /api/shares/lock?shareId=.
func (h *ShareHandler) AcquireSharedLease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	shareID, ok := uuidParam(w, r, "shareId")
	if !ok {
		return
	}
	userID := r.Context().Value(middleware.UserIDKey).(string)

	lease, err := h.Service.AcquireLease(shareID, userID)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to acquire shared lease via %s: %v", shareID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lease)
}

// ReleaseSharedLease handles POST /api/shares/unlock?shareId=.
func (h *ShareHandler) ReleaseSharedLease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	shareID, ok := uuidParam(w, r, "shareId")
	if !ok {
		return
	}
	userID := r.Context().Value(middleware.UserIDKey).(string)

	if err := h.Service.ReleaseLease(shareID, userID); err != nil {
		logger.Sugar.Errorf("Handler: Failed to release shared lease via %s: %v", shareID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"released": true})
}

// UpdateSharedDocument handles PUT /api/shares/update?shareId=.
func (h *ShareHandler) UpdateSharedDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	shareID, ok := uuidParam(w, r, "shareId")
	if !ok {
		return
	}
	userID := r.Context().Value(middleware.UserIDKey).(string)

	var req docmodel.UpdateDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.Service.UpdateDocument(shareID, userID, req)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to update document via share %s: %v", shareID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		http.Error(w, "Missing "+name+" parameter", http.StatusBadRequest)
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "Invalid "+name+" parameter", http.StatusBadRequest)
		return uuid.UUID{}, false
	}
	return id, true
}
