package service

import (
	"fmt"
	"time"

	docrepo "securenotes/internal/document/repository"
	eventmodel "securenotes/internal/event/model"
	eventrepo "securenotes/internal/event/repository"
	"securenotes/internal/lease/model"
	"securenotes/internal/lease/repository"

	"github.com/google/uuid"
)

// LeaseService gates every mutating document path. Acquire never blocks:
// it grants, returns the active lease, or fails.
type LeaseService struct {
	Leases *repository.LeaseRepository
	Docs   *docrepo.DocumentRepository
	Events *eventrepo.EventRepository
	TTL    time.Duration
}

func NewLeaseService(leases *repository.LeaseRepository, docs *docrepo.DocumentRepository, events *eventrepo.EventRepository, ttl time.Duration) *LeaseService {
	return &LeaseService{Leases: leases, Docs: docs, Events: events, TTL: ttl}
}

// Acquire grants the requester a lease on their own document. The document
// must exist for the requester; anything else is not-found, so a foreign
// document id never confirms existence. When an unexpired lease is already
// active it is returned unchanged, whoever holds it.
func (s *LeaseService) Acquire(requesterID string, docID uuid.UUID) (model.Lease, error) {
	if _, err := s.Docs.Get(requesterID, docID); err != nil {
		return model.Lease{}, err
	}
	lease, err := s.Leases.AcquireOrReuse(docID, requesterID, s.TTL.Seconds())
	if err != nil {
		return model.Lease{}, err
	}
	ev := eventmodel.NewLeaseGranted(requesterID, docID, lease.LeaseID, eventmodel.LeaseMeta{HolderID: lease.HolderID})
	if _, err := s.Events.Append(ev); err != nil {
		return model.Lease{}, err
	}
	return lease, nil
}

// AcquireForDelegate grants a share grantee a lease on the owner's
// document. The lease is stored against the document itself, so the owner
// and the delegate contend for the same exclusive lease.
func (s *LeaseService) AcquireForDelegate(ownerID string, docID uuid.UUID, delegateID string, shareID uuid.UUID) (model.Lease, error) {
	if _, err := s.Docs.Get(ownerID, docID); err != nil {
		return model.Lease{}, err
	}
	lease, err := s.Leases.AcquireOrReuse(docID, delegateID, s.TTL.Seconds())
	if err != nil {
		return model.Lease{}, err
	}
	meta := eventmodel.LeaseMeta{HolderID: lease.HolderID, ViaShare: shareID.String()}
	if _, err := s.Events.Append(eventmodel.NewLeaseGranted(ownerID, docID, lease.LeaseID, meta)); err != nil {
		return model.Lease{}, err
	}
	return lease, nil
}

// Release drops whatever lease exists on the requester's document. It is
// idempotent: releasing an already-released document succeeds as long as
// the document exists for the requester.
func (s *LeaseService) Release(requesterID string, docID uuid.UUID) error {
	return s.release(requesterID, docID, requesterID, nil)
}

// ReleaseForDelegate is Release invoked through a read-write share.
func (s *LeaseService) ReleaseForDelegate(ownerID string, docID uuid.UUID, delegateID string, shareID uuid.UUID) error {
	return s.release(ownerID, docID, delegateID, &shareID)
}

func (s *LeaseService) release(ownerID string, docID uuid.UUID, actorID string, shareID *uuid.UUID) error {
	if _, err := s.Docs.Get(ownerID, docID); err != nil {
		return err
	}
	if err := s.Leases.Delete(docID); err != nil {
		return err
	}
	meta := eventmodel.LeaseMeta{HolderID: actorID}
	if shareID != nil {
		meta.ViaShare = shareID.String()
	}
	if _, err := s.Events.Append(eventmodel.NewLeaseReleased(ownerID, docID, meta)); err != nil {
		return err
	}
	return nil
}

// Validate reports whether leaseID is the active lease on the document and
// is held by holderID. An expired lease found here is purged lazily; no
// background sweeper exists or is needed for correctness.
func (s *LeaseService) Validate(docID uuid.UUID, holderID string, leaseID uuid.UUID) (bool, error) {
	lease, found, err := s.Leases.Get(docID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if lease.Expired() {
		if err := s.Leases.Purge(docID, lease.LeaseID); err != nil {
			return false, fmt.Errorf("validate lease: %w", err)
		}
		return false, nil
	}
	return lease.HolderID == holderID && lease.LeaseID == leaseID, nil
}
