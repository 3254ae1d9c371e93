package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types. Events are append-only and ordered per owner; the set of
// types is closed and each type carries its own metadata shape.
const (
	TypeCreated       = "CREATED"
	TypeUpdated       = "UPDATED"
	TypeLeaseGranted  = "LEASE_GRANTED"
	TypeLeaseReleased = "LEASE_RELEASED"
	TypeShareGranted  = "SHARE_GRANTED"
	TypeShareRevoked  = "SHARE_REVOKED"
)

// Event is an immutable record of a state-changing occurrence. OwnerID is
// the owner of the log the event lives in (the document owner for document
// and lease events, regardless of which principal acted); the acting
// principal, when different, is recorded in the metadata.
type Event struct {
	EventID    uuid.UUID       `json:"event_id"`
	Type       string          `json:"event_type"`
	TS         time.Time       `json:"ts"`
	OwnerID    string          `json:"user_id"`
	DocumentID *uuid.UUID      `json:"document_id,omitempty"`
	LeaseID    *uuid.UUID      `json:"lease_id,omitempty"`
	Meta       json.RawMessage `json:"metadata"`
}

// UpdateMeta accompanies CREATED and UPDATED events.
type UpdateMeta struct {
	Version  int    `json:"version"`
	ViaShare string `json:"via_share,omitempty"`
	ActorID  string `json:"actor_id,omitempty"`
}

// LeaseMeta accompanies LEASE_GRANTED and LEASE_RELEASED events.
type LeaseMeta struct {
	HolderID string `json:"holder_id"`
	ViaShare string `json:"via_share,omitempty"`
}

// ShareMeta accompanies SHARE_GRANTED and SHARE_REVOKED events.
type ShareMeta struct {
	ShareID    string `json:"share_id"`
	Mode       string `json:"mode,omitempty"`
	SharedWith string `json:"shared_with,omitempty"`
}

func NewCreated(ownerID string, docID uuid.UUID, version int) Event {
	return newDocEvent(TypeCreated, ownerID, docID, nil, UpdateMeta{Version: version})
}

func NewUpdated(ownerID string, docID, leaseID uuid.UUID, meta UpdateMeta) Event {
	return newDocEvent(TypeUpdated, ownerID, docID, &leaseID, meta)
}

func NewLeaseGranted(ownerID string, docID, leaseID uuid.UUID, meta LeaseMeta) Event {
	return newDocEvent(TypeLeaseGranted, ownerID, docID, &leaseID, meta)
}

func NewLeaseReleased(ownerID string, docID uuid.UUID, meta LeaseMeta) Event {
	return newDocEvent(TypeLeaseReleased, ownerID, docID, nil, meta)
}

func NewShareGranted(ownerID string, docID uuid.UUID, meta ShareMeta) Event {
	return newDocEvent(TypeShareGranted, ownerID, docID, nil, meta)
}

func NewShareRevoked(ownerID string, meta ShareMeta) Event {
	raw, _ := json.Marshal(meta)
	return Event{Type: TypeShareRevoked, OwnerID: ownerID, Meta: raw}
}

func newDocEvent(eventType, ownerID string, docID uuid.UUID, leaseID *uuid.UUID, meta any) Event {
	raw, _ := json.Marshal(meta)
	return Event{
		Type:       eventType,
		OwnerID:    ownerID,
		DocumentID: &docID,
		LeaseID:    leaseID,
		Meta:       raw,
	}
}

// CarriesSnapshot reports whether replication attaches a document payload
// to this event type.
func CarriesSnapshot(eventType string) bool {
	return eventType == TypeCreated || eventType == TypeUpdated
}
