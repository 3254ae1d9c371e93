package service

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	docmodel "securenotes/internal/document/model"
	docrepo "securenotes/internal/document/repository"
	eventmodel "securenotes/internal/event/model"
	eventrepo "securenotes/internal/event/repository"
	"securenotes/internal/replication/model"
	"securenotes/internal/replication/repository"
	"securenotes/pkg/metrics"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*ReplicationService, sqlmock.Sqlmock, *metrics.Registry) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := metrics.New()
	svc := NewReplicationService(
		eventrepo.NewEventRepository(db, m),
		docrepo.NewDocumentRepository(db, m),
		repository.NewSeenRepository(db),
		m,
		nil,
	)
	return svc, mock, m
}

func enriched(eventID uuid.UUID, ownerID string, doc *docmodel.Document) model.EnrichedEvent {
	e := model.EnrichedEvent{
		Event: eventmodel.Event{
			EventID: eventID,
			Type:    eventmodel.TypeUpdated,
			TS:      time.Now().UTC(),
			OwnerID: ownerID,
		},
		Payload: doc,
	}
	if doc != nil {
		e.DocumentID = &doc.ID
	}
	return e
}

func snapshot(docID uuid.UUID, ownerID string, version int) *docmodel.Document {
	now := time.Now().UTC()
	return &docmodel.Document{
		ID: docID, OwnerID: ownerID, Title: "t", Content: "c",
		CreatedAt: now, UpdatedAt: now, Version: version,
	}
}

func TestPushAppliesNewEvent(t *testing.T) {
	svc, mock, _ := newService(t)
	eventID := uuid.New()
	docID := uuid.New()

	mock.ExpectExec("INSERT INTO replication_seen").
		WithArgs("user1", eventID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := svc.Push([]model.EnrichedEvent{enriched(eventID, "user1", snapshot(docID, "user1", 3))})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPushDuplicateEventIsIgnored(t *testing.T) {
	svc, mock, m := newService(t)
	eventID := uuid.New()

	mock.ExpectExec("INSERT INTO replication_seen").
		WithArgs("user1", eventID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := svc.Push([]model.EnrichedEvent{enriched(eventID, "user1", snapshot(uuid.New(), "user1", 3))})
	require.NoError(t, err)
	assert.Zero(t, n, "an already-seen event must not count as applied")
	assert.Equal(t, uint64(1), m.Snapshot().ReplicationDuplicates)
	assert.NoError(t, mock.ExpectationsWereMet(), "a duplicate must never reach the documents table")
}

func TestPushOlderVersionLeavesLocalStateAlone(t *testing.T) {
	svc, mock, _ := newService(t)
	eventID := uuid.New()

	mock.ExpectExec("INSERT INTO replication_seen").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The upsert's WHERE clause rejects the stale version; zero rows change.
	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := svc.Push([]model.EnrichedEvent{enriched(eventID, "user1", snapshot(uuid.New(), "user1", 1))})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the event itself is still newly seen")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPushSkipsMalformedEventsWithoutAborting(t *testing.T) {
	svc, mock, m := newService(t)
	goodID := uuid.New()
	docID := uuid.New()

	mock.ExpectExec("INSERT INTO replication_seen").
		WithArgs("user1", goodID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(0, 1))

	batch := []model.EnrichedEvent{
		enriched(uuid.Nil, "user1", nil),
		enriched(uuid.New(), "", nil),
		enriched(goodID, "user1", snapshot(docID, "user1", 2)),
	}
	n, err := svc.Push(batch)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(2), m.Snapshot().ReplicationMalformed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPushRawSkipsUndecodableEntries(t *testing.T) {
	svc, mock, m := newService(t)
	eventID := uuid.New()
	docID := uuid.New()

	good, err := json.Marshal(enriched(eventID, "user1", snapshot(docID, "user1", 2)))
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO replication_seen").
		WithArgs("user1", eventID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(0, 1))

	entries := []json.RawMessage{
		json.RawMessage(`{"event_id":"not-a-uuid","user_id":"user1"}`),
		json.RawMessage(`{"event_id":"` + uuid.NewString() + `","user_id":"user1","payload":{"version":"three"}}`),
		good,
	}
	n, err := svc.PushRaw(entries)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(2), m.Snapshot().ReplicationMalformed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPushSkipsInvalidPayloadButRecordsEvent(t *testing.T) {
	svc, mock, m := newService(t)
	eventID := uuid.New()

	mock.ExpectExec("INSERT INTO replication_seen").
		WillReturnResult(sqlmock.NewResult(0, 1))

	bad := snapshot(uuid.New(), "user1", 0)
	n, err := svc.Push([]model.EnrichedEvent{enriched(eventID, "user1", bad)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(1), m.Snapshot().ReplicationMalformed)
	assert.NoError(t, mock.ExpectationsWereMet(), "a version below 1 must never reach the documents table")
}

func TestPullEnrichesDocumentEvents(t *testing.T) {
	svc, mock, _ := newService(t)
	docID := uuid.New()
	updateID := uuid.New()
	leaseEventID := uuid.New()
	now := time.Now()

	eventCols := []string{"event_id", "event_type", "ts", "owner_id", "document_id", "lease_id", "meta"}
	mock.ExpectQuery("SELECT event_id, event_type, ts, owner_id, document_id, lease_id, meta").
		WithArgs("user1", 100).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(updateID.String(), eventmodel.TypeUpdated, now, "user1", docID.String(), nil, []byte(`{"version":2}`)).
			AddRow(leaseEventID.String(), eventmodel.TypeLeaseGranted, now, "user1", docID.String(), uuid.NewString(), []byte(`{}`)))
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1 AND owner_id = \\$2").
		WithArgs(docID, "user1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title", "content", "created_at", "updated_at", "version"}).
			AddRow(docID.String(), "user1", "t", "c", now, now, 2))

	out, err := svc.Pull("user1", nil, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].Payload, "document events carry the current snapshot")
	assert.Equal(t, 2, out[0].Payload.Version)
	assert.Nil(t, out[1].Payload, "lease events carry no snapshot")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPullDeletedSnapshotYieldsBareEvent(t *testing.T) {
	svc, mock, _ := newService(t)
	docID := uuid.New()
	now := time.Now()

	eventCols := []string{"event_id", "event_type", "ts", "owner_id", "document_id", "lease_id", "meta"}
	mock.ExpectQuery("SELECT event_id, event_type, ts, owner_id, document_id, lease_id, meta").
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(uuid.NewString(), eventmodel.TypeCreated, now, "user1", docID.String(), nil, []byte(`{}`)))
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1 AND owner_id = \\$2").
		WillReturnError(sql.ErrNoRows)

	out, err := svc.Pull("user1", nil, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}
