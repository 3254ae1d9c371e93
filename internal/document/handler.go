package handler

import (
	"encoding/json"
	"net/http"

	"securenotes/internal/apperr"
	"securenotes/internal/document/model"
	"securenotes/internal/document/service"
	"securenotes/middleware"
	"securenotes/pkg/logger"

	"github.com/google/uuid"
)

type DocumentHandler struct {
	Service *service.DocumentService
}

func NewDocumentHandler(service *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Context().Value(middleware.UserIDKey).(string)

	var req model.CreateDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.Service.Create(userID, req.Title, req.Content)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to create document: %v", err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Context().Value(middleware.UserIDKey).(string)

	docs, err := h.Service.List(userID)
	if err != nil {
		logger.Sugar.Errorf("Error fetching documents: %v", err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID, ok := docIDParam(w, r)
	if !ok {
		return
	}
	userID := r.Context().Value(middleware.UserIDKey).(string)

	doc, err := h.Service.Get(userID, docID)
	if err != nil {
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	docID, ok := docIDParam(w, r)
	if !ok {
		return
	}
	userID := r.Context().Value(middleware.UserIDKey).(string)

	var req model.UpdateDocRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.Service.Update(userID, docID, req)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to update document %s: %v", docID, err)
		http.Error(w, err.Error(), apperr.Status(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
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
