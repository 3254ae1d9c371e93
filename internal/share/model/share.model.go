package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ModeReadOnly  = "ro"
	ModeReadWrite = "rw"
)

// Share grants a second principal access to a document owned by someone
// else. Revocation flips a flag and never deletes the record, so the audit
// trail survives.
type Share struct {
	ShareID    uuid.UUID  `json:"share_id"`
	OwnerID    string     `json:"owner_id"`
	GranteeID  string     `json:"grantee_id"`
	DocumentID uuid.UUID  `json:"document_id"`
	Mode       string     `json:"mode"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Revoked    bool       `json:"revoked"`
}

// Valid reports whether the share currently grants access.
func (s Share) Valid() bool {
	if s.Revoked {
		return false
	}
	return s.ExpiresAt == nil || time.Now().Before(*s.ExpiresAt)
}

// ValidMode reports whether mode is one of the two recognized values.
func ValidMode(mode string) bool {
	return mode == ModeReadOnly || mode == ModeReadWrite
}

type CreateShareRequest struct {
	GranteeID  string `json:"grantee_id"`
	Mode       string `json:"mode"`
	TTLMinutes *int   `json:"ttl_minutes,omitempty"`
}
