package service

import (
	"encoding/json"
	"errors"

	"securenotes/internal/apperr"
	docrepo "securenotes/internal/document/repository"
	docsvc "securenotes/internal/document/service"
	eventmodel "securenotes/internal/event/model"
	eventrepo "securenotes/internal/event/repository"
	"securenotes/internal/replication/model"
	"securenotes/internal/replication/repository"
	"securenotes/pkg/logger"
	"securenotes/pkg/metrics"

	"github.com/google/uuid"
)

// ReplicationService serves the pull side of the protocol and applies
// pushed batches. Apply order and duplication are irrelevant to the final
// state: the seen set deduplicates events and document versions decide
// conflicts, so replicas converge however batches arrive.
type ReplicationService struct {
	Events  *eventrepo.EventRepository
	Docs    *docrepo.DocumentRepository
	Seen    *repository.SeenRepository
	Metrics *metrics.Registry
	Hub     docsvc.Notifier
}

func NewReplicationService(events *eventrepo.EventRepository, docs *docrepo.DocumentRepository, seen *repository.SeenRepository, m *metrics.Registry, hub docsvc.Notifier) *ReplicationService {
	return &ReplicationService{Events: events, Docs: docs, Seen: seen, Metrics: m, Hub: hub}
}

// Pull reads events for the owner after the cursor and enriches document
// events with the current document snapshot. A document that no longer
// exists yields the bare event with no payload.
func (s *ReplicationService) Pull(ownerID string, sinceEventID *uuid.UUID, limit int) ([]model.EnrichedEvent, error) {
	events, err := s.Events.Read(ownerID, sinceEventID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]model.EnrichedEvent, 0, len(events))
	for _, e := range events {
		ee := model.EnrichedEvent{Event: e}
		if eventmodel.CarriesSnapshot(e.Type) && e.DocumentID != nil {
			doc, err := s.Docs.Get(e.OwnerID, *e.DocumentID)
			switch {
			case err == nil:
				ee.Payload = &doc
			case errors.Is(err, apperr.ErrNotFound):
				// Snapshot gone; ship the event without a payload.
			default:
				return nil, err
			}
		}
		out = append(out, ee)
	}
	return out, nil
}

// PushRaw decodes and applies a pushed batch. Each entry is decoded
// independently, so one entry with unparseable fields is counted as
// malformed and skipped while the rest of the batch still applies.
func (s *ReplicationService) PushRaw(entries []json.RawMessage) (int, error) {
	batch := make([]model.EnrichedEvent, 0, len(entries))
	var undecodable uint64
	for _, raw := range entries {
		var e model.EnrichedEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			undecodable++
			logger.Sugar.Warnf("Skipping undecodable replication entry: %v", err)
			continue
		}
		batch = append(batch, e)
	}
	return s.apply(batch, undecodable)
}

// Push applies a batch of enriched events idempotently. Each event is
// processed independently: malformed entries and individual apply failures
// are counted and skipped, never aborting the batch. The returned count is
// the number of events newly seen, whether or not their payloads changed
// local state.
func (s *ReplicationService) Push(batch []model.EnrichedEvent) (int, error) {
	return s.apply(batch, 0)
}

func (s *ReplicationService) apply(batch []model.EnrichedEvent, malformed uint64) (int, error) {
	var applied, duplicates, applyFailures uint64

	for _, e := range batch {
		if e.EventID == uuid.Nil || e.OwnerID == "" {
			malformed++
			logger.Sugar.Warnf("Skipping replication event with missing id or owner (type %q)", e.Type)
			continue
		}

		newlySeen, err := s.Seen.MarkSeen(e.OwnerID, e.EventID)
		if err != nil {
			applyFailures++
			logger.Sugar.Errorf("Failed to record replication event %s as seen: %v", e.EventID, err)
			continue
		}
		if !newlySeen {
			duplicates++
			continue
		}

		if eventmodel.CarriesSnapshot(e.Type) && e.Payload != nil {
			s.applyPayload(e, &malformed, &applyFailures)
		}
		applied++
	}

	s.Metrics.ObservePush(applied, duplicates, malformed, applyFailures)
	return int(applied), nil
}

func (s *ReplicationService) applyPayload(e model.EnrichedEvent, malformed, applyFailures *uint64) {
	if e.Payload.ID == uuid.Nil || e.Payload.OwnerID == "" || e.Payload.Version < 1 {
		*malformed++
		logger.Sugar.Warnf("Skipping malformed payload on replication event %s", e.EventID)
		return
	}
	changed, err := s.Docs.ApplyReplica(*e.Payload)
	if err != nil {
		*applyFailures++
		logger.Sugar.Errorf("Failed to apply replication payload for document %s: %v", e.Payload.ID, err)
		return
	}
	if changed && s.Hub != nil {
		s.Hub.NotifyDocumentChanged(e.Payload.OwnerID, e.Payload.ID, e.Payload.Version)
	}
}
