package socket

import (
	"encoding/json"

	"securenotes/pkg/logger"

	"github.com/google/uuid"
)

const DocumentChangedType = "DOCUMENT_CHANGED"

// Notification tells a connected client that one of their documents moved
// to a new version, whether through a local mutation or a replication
// apply. Clients re-fetch the document; content never travels on the feed.
type Notification struct {
	Type       string    `json:"type"`
	DocumentID uuid.UUID `json:"document_id"`
	Version    int       `json:"version"`
}

type envelope struct {
	ownerID string
	payload []byte
}

// Hub fans notifications out to each owner's connected clients. All room
// state is owned by the Run goroutine; registration, departure and
// notifications arrive over channels.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	notify chan envelope
	rooms  map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		notify:     make(chan envelope, 64),
		rooms:      make(map[string]map[*Client]bool),
	}
}

// NotifyDocumentChanged queues a change notification for every client
// connected to ownerID's feed. It never blocks a mutation path: when the
// hub is saturated the notification is dropped and logged.
func (h *Hub) NotifyDocumentChanged(ownerID string, docID uuid.UUID, version int) {
	payload, err := json.Marshal(Notification{Type: DocumentChangedType, DocumentID: docID, Version: version})
	if err != nil {
		logger.Sugar.Errorf("Error marshalling notification for document %s: %v", docID, err)
		return
	}
	select {
	case h.notify <- envelope{ownerID: ownerID, payload: payload}:
	default:
		logger.Sugar.Warnf("Notification hub saturated; dropping update for owner %s", ownerID)
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.rooms[client.OwnerID] == nil {
				h.rooms[client.OwnerID] = make(map[*Client]bool)
			}
			h.rooms[client.OwnerID][client] = true

		case client := <-h.Unregister:
			if _, ok := h.rooms[client.OwnerID][client]; ok {
				delete(h.rooms[client.OwnerID], client)
				close(client.Send)
				if len(h.rooms[client.OwnerID]) == 0 {
					delete(h.rooms, client.OwnerID)
				}
			}

		case env := <-h.notify:
			for client := range h.rooms[env.ownerID] {
				select {
				case client.Send <- env.payload:
				default:
					// Lagging client; drop the notification rather than
					// stall the hub. The pumps will reap dead connections.
					logger.Sugar.Warnf("Client %s's send buffer is full; dropping notification", client.OwnerID)
				}
			}
		}
	}
}
