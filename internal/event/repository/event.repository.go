package repository

import (
	"database/sql"
	"fmt"
	"time"

	"securenotes/internal/event/model"
	"securenotes/pkg/logger"
	"securenotes/pkg/metrics"

	"github.com/google/uuid"
)

// EventRepository is the append-only per-owner event log. There is no
// delete or update path, only Append and Read.
type EventRepository struct {
	DB      *sql.DB
	Metrics *metrics.Registry
}

func NewEventRepository(db *sql.DB, m *metrics.Registry) *EventRepository {
	return &EventRepository{DB: db, Metrics: m}
}

// Append assigns a fresh event id and timestamp and durably appends the
// event to its owner's log. A failed insert propagates; an event that was
// not persisted never counts as emitted.
func (r *EventRepository) Append(e model.Event) (model.Event, error) {
	e.EventID = uuid.New()
	e.TS = time.Now().UTC()

	meta := e.Meta
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	_, err := r.DB.Exec(
		`INSERT INTO events (event_id, event_type, ts, owner_id, document_id, lease_id, meta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.EventID, e.Type, e.TS, e.OwnerID, e.DocumentID, e.LeaseID, string(meta))
	if err != nil {
		logger.Sugar.Errorf("Failed to append %s event for owner %s: %v", e.Type, e.OwnerID, err)
		return model.Event{}, fmt.Errorf("append event: %w", err)
	}
	return e, nil
}

// Read returns up to limit events for the owner, in append order, strictly
// after sinceEventID. An unknown or absent cursor reads from the beginning;
// a lost cursor therefore silently restarts the stream, which is logged at
// debug level.
func (r *EventRepository) Read(ownerID string, sinceEventID *uuid.UUID, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error
	if sinceEventID == nil {
		rows, err = r.DB.Query(
			`SELECT event_id, event_type, ts, owner_id, document_id, lease_id, meta
			 FROM events WHERE owner_id = $1 ORDER BY seq ASC LIMIT $2`,
			ownerID, limit)
	} else {
		logger.Sugar.Debugf("Reading events for %s after cursor %s", ownerID, sinceEventID)
		rows, err = r.DB.Query(
			`SELECT event_id, event_type, ts, owner_id, document_id, lease_id, meta
			 FROM events
			 WHERE owner_id = $1
			   AND seq > COALESCE((SELECT seq FROM events WHERE owner_id = $1 AND event_id = $2), 0)
			 ORDER BY seq ASC LIMIT $3`,
			ownerID, *sinceEventID, limit)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read events for owner %s: %v", ownerID, err)
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		var e model.Event
		var meta []byte
		if err := rows.Scan(&e.EventID, &e.Type, &e.TS, &e.OwnerID, &e.DocumentID, &e.LeaseID, &meta); err != nil {
			r.Metrics.IncCorruptRecordSkipped()
			logger.Sugar.Warnf("Skipping unreadable event row for owner %s: %v", ownerID, err)
			continue
		}
		e.Meta = meta
		out = append(out, e)
	}
	return out, rows.Err()
}
