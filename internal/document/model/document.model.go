package model

import (
	"time"

	"github.com/google/uuid"
)

// Document is the unit of storage. Version starts at 1 and increments by
// exactly one on every accepted mutation; it never decreases and a value is
// never reused for the same document.
type Document struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type CreateDocRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateDocRequest mutates a document; LeaseID must identify the caller's
// active lease or the update is rejected with a conflict.
type UpdateDocRequest struct {
	Title   string    `json:"title"`
	Content string    `json:"content"`
	LeaseID uuid.UUID `json:"lease_id"`
}

type DocumentMetadata struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}
