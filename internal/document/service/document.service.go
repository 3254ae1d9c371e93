package service

import (
	"fmt"
	"time"

	"securenotes/internal/apperr"
	"securenotes/internal/document/model"
	"securenotes/internal/document/repository"
	eventmodel "securenotes/internal/event/model"
	eventrepo "securenotes/internal/event/repository"
	leasesvc "securenotes/internal/lease/service"

	"github.com/google/uuid"
)

// Notifier pushes change notifications to an owner's connected clients.
// Implemented by the websocket hub; may be nil in tests.
type Notifier interface {
	NotifyDocumentChanged(ownerID string, docID uuid.UUID, version int)
}

type DocumentService struct {
	Repo   *repository.DocumentRepository
	Leases *leasesvc.LeaseService
	Events *eventrepo.EventRepository
	Hub    Notifier
}

func NewDocumentService(repo *repository.DocumentRepository, leases *leasesvc.LeaseService, events *eventrepo.EventRepository, hub Notifier) *DocumentService {
	return &DocumentService{Repo: repo, Leases: leases, Events: events, Hub: hub}
}

// Create stores a new document at version 1 and appends the creation event.
func (s *DocumentService) Create(ownerID, title, content string) (model.Document, error) {
	if title == "" {
		title = "Untitled Document"
	}
	now := time.Now().UTC()
	doc := model.Document{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := s.Repo.Create(doc); err != nil {
		return model.Document{}, err
	}
	if _, err := s.Events.Append(eventmodel.NewCreated(ownerID, doc.ID, doc.Version)); err != nil {
		return model.Document{}, err
	}
	if s.Hub != nil {
		s.Hub.NotifyDocumentChanged(ownerID, doc.ID, doc.Version)
	}
	return doc, nil
}

func (s *DocumentService) Get(ownerID string, docID uuid.UUID) (model.Document, error) {
	return s.Repo.Get(ownerID, docID)
}

func (s *DocumentService) List(ownerID string) ([]model.Document, error) {
	return s.Repo.List(ownerID)
}

// Update mutates the requester's own document. The requester must hold the
// active lease; anything else is a conflict.
func (s *DocumentService) Update(ownerID string, docID uuid.UUID, req model.UpdateDocRequest) (model.Document, error) {
	return s.UpdateAs(ownerID, ownerID, docID, req, nil)
}

// UpdateAs is the single lease-gated write path, shared by owner updates
// and read-write share updates. ownerID owns the document; actorID is the
// principal performing the write and must hold the active lease.
func (s *DocumentService) UpdateAs(ownerID, actorID string, docID uuid.UUID, req model.UpdateDocRequest, viaShare *uuid.UUID) (model.Document, error) {
	if _, err := s.Repo.Get(ownerID, docID); err != nil {
		return model.Document{}, err
	}
	ok, err := s.Leases.Validate(docID, actorID, req.LeaseID)
	if err != nil {
		return model.Document{}, err
	}
	if !ok {
		return model.Document{}, fmt.Errorf("update document %s: %w", docID, apperr.ErrConflict)
	}

	doc, err := s.Repo.Update(ownerID, docID, req.Title, req.Content)
	if err != nil {
		return model.Document{}, err
	}

	meta := eventmodel.UpdateMeta{Version: doc.Version}
	if actorID != ownerID {
		meta.ActorID = actorID
	}
	if viaShare != nil {
		meta.ViaShare = viaShare.String()
	}
	if _, err := s.Events.Append(eventmodel.NewUpdated(ownerID, docID, req.LeaseID, meta)); err != nil {
		return model.Document{}, err
	}
	if s.Hub != nil {
		s.Hub.NotifyDocumentChanged(ownerID, doc.ID, doc.Version)
	}
	return doc, nil
}
