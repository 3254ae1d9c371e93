package model

import (
	"time"

	"github.com/google/uuid"
)

// Lease is a time-bounded exclusive right to mutate one document. At most
// one unexpired lease exists per document; expiry is evaluated lazily
// wherever the lease is read, never by a background timer.
type Lease struct {
	LeaseID    uuid.UUID `json:"lease_id"`
	DocumentID uuid.UUID `json:"document_id"`
	HolderID   string    `json:"holder_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the lease TTL has elapsed.
func (l Lease) Expired() bool {
	return !time.Now().Before(l.ExpiresAt)
}
