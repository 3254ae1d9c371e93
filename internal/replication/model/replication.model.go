package model

import (
	docmodel "securenotes/internal/document/model"
	eventmodel "securenotes/internal/event/model"
)

// EnrichedEvent is the replication transfer unit: a log event plus, for
// document events, a full snapshot of the document's current state. The
// snapshot is current-state, not state-at-event-time; convergence matters
// more than replay fidelity.
type EnrichedEvent struct {
	eventmodel.Event
	Payload *docmodel.Document `json:"payload,omitempty"`
}

// PushResponse is the body returned by the push endpoint. Applied counts
// events newly seen, not documents changed.
type PushResponse struct {
	Applied int `json:"applied"`
}
