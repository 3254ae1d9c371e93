package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"securenotes/internal/apperr"
	"securenotes/internal/lease/model"
	"securenotes/pkg/logger"

	"github.com/google/uuid"
)

// LeaseRepository stores one row per document, which is what makes the
// one-lease-per-document invariant hold: every acquire path is a single
// conditional statement against that row, never a read followed by a write.
type LeaseRepository struct {
	DB *sql.DB
}

func NewLeaseRepository(db *sql.DB) *LeaseRepository {
	return &LeaseRepository{DB: db}
}

// AcquireOrReuse grants a fresh lease when none is active, atomically
// replacing an expired one, and otherwise returns the currently active
// lease unchanged (whoever holds it). ttlSeconds bounds the new lease.
//
// The order of operations matters: a conditional UPDATE takes over an
// expired row, an INSERT ... ON CONFLICT DO NOTHING claims an absent one,
// and only then is the surviving active lease read back. Two concurrent
// callers can therefore never both create a lease; the loser of either
// race falls through to the read and observes the winner's lease.
func (r *LeaseRepository) AcquireOrReuse(docID uuid.UUID, holderID string, ttlSeconds float64) (model.Lease, error) {
	for attempt := 0; attempt < 3; attempt++ {
		leaseID := uuid.New()

		row := r.DB.QueryRow(
			`UPDATE leases
			 SET lease_id = $1, holder_id = $2, created_at = NOW(),
			     expires_at = NOW() + make_interval(secs => $3)
			 WHERE document_id = $4 AND expires_at <= NOW()
			 RETURNING created_at, expires_at`,
			leaseID, holderID, ttlSeconds, docID)
		lease := model.Lease{LeaseID: leaseID, DocumentID: docID, HolderID: holderID}
		err := row.Scan(&lease.CreatedAt, &lease.ExpiresAt)
		if err == nil {
			return lease, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Sugar.Errorf("Failed to replace expired lease for document %s: %v", docID, err)
			return model.Lease{}, fmt.Errorf("acquire lease: %w", err)
		}

		row = r.DB.QueryRow(
			`INSERT INTO leases (document_id, lease_id, holder_id, created_at, expires_at)
			 VALUES ($1, $2, $3, NOW(), NOW() + make_interval(secs => $4))
			 ON CONFLICT (document_id) DO NOTHING
			 RETURNING created_at, expires_at`,
			docID, leaseID, holderID, ttlSeconds)
		err = row.Scan(&lease.CreatedAt, &lease.ExpiresAt)
		if err == nil {
			return lease, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			logger.Sugar.Errorf("Failed to create lease for document %s: %v", docID, err)
			return model.Lease{}, fmt.Errorf("acquire lease: %w", err)
		}

		// Both claims lost: an unexpired lease already exists. Return it
		// unchanged; callers compare holder_id themselves.
		existing, found, err := r.Get(docID)
		if err != nil {
			return model.Lease{}, err
		}
		if found && !existing.Expired() {
			return existing, nil
		}
		// The active lease vanished between our claims and the read
		// (released or expired concurrently); try again.
	}
	return model.Lease{}, fmt.Errorf("acquire lease for document %s: %w", docID, apperr.ErrConflict)
}

// Get reads the stored lease row, expired or not.
func (r *LeaseRepository) Get(docID uuid.UUID) (model.Lease, bool, error) {
	row := r.DB.QueryRow(
		`SELECT lease_id, holder_id, created_at, expires_at
		 FROM leases WHERE document_id = $1`,
		docID)
	lease := model.Lease{DocumentID: docID}
	err := row.Scan(&lease.LeaseID, &lease.HolderID, &lease.CreatedAt, &lease.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Lease{}, false, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read lease for document %s: %v", docID, err)
		return model.Lease{}, false, fmt.Errorf("read lease: %w", err)
	}
	return lease, true, nil
}

// Delete removes whatever lease row exists for the document.
func (r *LeaseRepository) Delete(docID uuid.UUID) error {
	if _, err := r.DB.Exec(`DELETE FROM leases WHERE document_id = $1`, docID); err != nil {
		logger.Sugar.Errorf("Failed to delete lease for document %s: %v", docID, err)
		return fmt.Errorf("delete lease: %w", err)
	}
	return nil
}

// Purge removes the lease only if it still carries the given lease id, so a
// lazily-detected expired lease is cleaned up without racing a concurrent
// re-acquire that already replaced the row.
func (r *LeaseRepository) Purge(docID, leaseID uuid.UUID) error {
	if _, err := r.DB.Exec(
		`DELETE FROM leases WHERE document_id = $1 AND lease_id = $2`,
		docID, leaseID); err != nil {
		logger.Sugar.Errorf("Failed to purge expired lease for document %s: %v", docID, err)
		return fmt.Errorf("purge lease: %w", err)
	}
	return nil
}
