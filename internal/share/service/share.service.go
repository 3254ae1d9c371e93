package service

import (
	"fmt"
	"time"

	"securenotes/internal/apperr"
	docmodel "securenotes/internal/document/model"
	docsvc "securenotes/internal/document/service"
	eventmodel "securenotes/internal/event/model"
	eventrepo "securenotes/internal/event/repository"
	leasemodel "securenotes/internal/lease/model"
	leasesvc "securenotes/internal/lease/service"
	"securenotes/internal/share/model"
	"securenotes/internal/share/repository"

	"github.com/google/uuid"
)

// ShareService owns all cross-user access. Every grantee operation funnels
// through Resolve, which answers with a single opaque not-found for
// "no such share", "not yours", "revoked" and "expired" alike.
type ShareService struct {
	Repo   *repository.ShareRepository
	Docs   *docsvc.DocumentService
	Leases *leasesvc.LeaseService
	Events *eventrepo.EventRepository
}

func NewShareService(repo *repository.ShareRepository, docs *docsvc.DocumentService, leases *leasesvc.LeaseService, events *eventrepo.EventRepository) *ShareService {
	return &ShareService{Repo: repo, Docs: docs, Leases: leases, Events: events}
}

// Create grants granteeID access to the owner's document. The document
// must belong to ownerID; the mode must be "ro" or "rw".
func (s *ShareService) Create(ownerID string, docID uuid.UUID, req model.CreateShareRequest) (model.Share, error) {
	if !model.ValidMode(req.Mode) {
		return model.Share{}, fmt.Errorf("share mode %q: %w", req.Mode, apperr.ErrInvalidArgument)
	}
	if req.GranteeID == "" {
		return model.Share{}, fmt.Errorf("grantee id is required: %w", apperr.ErrInvalidArgument)
	}
	if _, err := s.Docs.Get(ownerID, docID); err != nil {
		return model.Share{}, err
	}

	share := model.Share{
		ShareID:    uuid.New(),
		OwnerID:    ownerID,
		GranteeID:  req.GranteeID,
		DocumentID: docID,
		Mode:       req.Mode,
		CreatedAt:  time.Now().UTC(),
	}
	if req.TTLMinutes != nil {
		if *req.TTLMinutes <= 0 {
			return model.Share{}, fmt.Errorf("share ttl must be positive: %w", apperr.ErrInvalidArgument)
		}
		exp := time.Now().UTC().Add(time.Duration(*req.TTLMinutes) * time.Minute)
		share.ExpiresAt = &exp
	}

	if err := s.Repo.Create(share); err != nil {
		return model.Share{}, err
	}
	meta := eventmodel.ShareMeta{ShareID: share.ShareID.String(), Mode: share.Mode, SharedWith: share.GranteeID}
	if _, err := s.Events.Append(eventmodel.NewShareGranted(ownerID, docID, meta)); err != nil {
		return model.Share{}, err
	}
	return share, nil
}

// Revoke flips the revoked flag on the owner's share.
func (s *ShareService) Revoke(ownerID string, shareID uuid.UUID) error {
	ok, err := s.Repo.Revoke(ownerID, shareID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("share %s: %w", shareID, apperr.ErrNotFound)
	}
	meta := eventmodel.ShareMeta{ShareID: shareID.String()}
	if _, err := s.Events.Append(eventmodel.NewShareRevoked(ownerID, meta)); err != nil {
		return err
	}
	return nil
}

// Resolve returns the share only when it exists, names requesterID as the
// grantee, and is currently valid. Every other outcome is the same
// not-found error.
func (s *ShareService) Resolve(shareID uuid.UUID, requesterID string) (model.Share, error) {
	share, found, err := s.Repo.Get(shareID)
	if err != nil {
		return model.Share{}, err
	}
	if !found || share.GranteeID != requesterID || !share.Valid() {
		return model.Share{}, fmt.Errorf("share %s: %w", shareID, apperr.ErrNotFound)
	}
	return share, nil
}

// GetDocument reads the shared document on behalf of the grantee. Either
// mode is sufficient for reads.
func (s *ShareService) GetDocument(shareID uuid.UUID, requesterID string) (docmodel.Document, error) {
	share, err := s.Resolve(shareID, requesterID)
	if err != nil {
		return docmodel.Document{}, err
	}
	return s.Docs.Get(share.OwnerID, share.DocumentID)
}

// AcquireLease acquires the document's exclusive lease on behalf of the
// grantee. Read-only shares are rejected before any lease logic runs.
func (s *ShareService) AcquireLease(shareID uuid.UUID, requesterID string) (leasemodel.Lease, error) {
	share, err := s.resolveWritable(shareID, requesterID)
	if err != nil {
		return leasemodel.Lease{}, err
	}
	return s.Leases.AcquireForDelegate(share.OwnerID, share.DocumentID, requesterID, share.ShareID)
}

// ReleaseLease releases the document's lease on behalf of the grantee.
func (s *ShareService) ReleaseLease(shareID uuid.UUID, requesterID string) error {
	share, err := s.resolveWritable(shareID, requesterID)
	if err != nil {
		return err
	}
	return s.Leases.ReleaseForDelegate(share.OwnerID, share.DocumentID, requesterID, share.ShareID)
}

// UpdateDocument writes through a read-write share. The grantee must hold
// the document's active lease, the same lease the owner would contend for.
func (s *ShareService) UpdateDocument(shareID uuid.UUID, requesterID string, req docmodel.UpdateDocRequest) (docmodel.Document, error) {
	share, err := s.resolveWritable(shareID, requesterID)
	if err != nil {
		return docmodel.Document{}, err
	}
	return s.Docs.UpdateAs(share.OwnerID, requesterID, share.DocumentID, req, &share.ShareID)
}

func (s *ShareService) resolveWritable(shareID uuid.UUID, requesterID string) (model.Share, error) {
	share, err := s.Resolve(shareID, requesterID)
	if err != nil {
		return model.Share{}, err
	}
	if share.Mode != model.ModeReadWrite {
		return model.Share{}, fmt.Errorf("share %s: %w", shareID, apperr.ErrForbidden)
	}
	return share, nil
}
