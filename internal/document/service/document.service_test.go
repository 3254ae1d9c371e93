package service

import (
	"database/sql"
	"testing"
	"time"

	"securenotes/internal/apperr"
	"securenotes/internal/document/model"
	"securenotes/internal/document/repository"
	eventrepo "securenotes/internal/event/repository"
	leaserepo "securenotes/internal/lease/repository"
	leasesvc "securenotes/internal/lease/service"
	"securenotes/pkg/metrics"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifierSpy struct {
	ownerID string
	docID   uuid.UUID
	version int
	calls   int
}

func (n *notifierSpy) NotifyDocumentChanged(ownerID string, docID uuid.UUID, version int) {
	n.ownerID, n.docID, n.version = ownerID, docID, version
	n.calls++
}

func newService(t *testing.T) (*DocumentService, sqlmock.Sqlmock, *notifierSpy) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := metrics.New()
	docs := repository.NewDocumentRepository(db, m)
	events := eventrepo.NewEventRepository(db, m)
	leases := leasesvc.NewLeaseService(leaserepo.NewLeaseRepository(db), docs, events, 300*time.Second)
	spy := &notifierSpy{}
	return NewDocumentService(docs, leases, events, spy), mock, spy
}

var docColumns = []string{"id", "owner_id", "title", "content", "created_at", "updated_at", "version"}

func docRow(docID uuid.UUID, ownerID, title, content string, version int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(docColumns).
		AddRow(docID.String(), ownerID, title, content, now, now, version)
}

func activeLeaseRow(leaseID uuid.UUID, holderID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"lease_id", "holder_id", "created_at", "expires_at"}).
		AddRow(leaseID.String(), holderID, now, now.Add(200*time.Second))
}

func TestCreateStartsAtVersionOne(t *testing.T) {
	svc, mock, spy := newService(t)

	mock.ExpectExec("INSERT INTO documents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(0, 1))

	doc, err := svc.Create("user1", "First Note", "encrypted-blob")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, "user1", doc.OwnerID)
	assert.Equal(t, 1, spy.calls)
	assert.Equal(t, doc.ID, spy.docID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDefaultsEmptyTitle(t *testing.T) {
	svc, mock, _ := newService(t)

	mock.ExpectExec("INSERT INTO documents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(0, 1))

	doc, err := svc.Create("user1", "", "c")
	require.NoError(t, err)
	assert.Equal(t, "Untitled Document", doc.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBumpsVersionByOne(t *testing.T) {
	svc, mock, spy := newService(t)
	docID := uuid.New()
	leaseID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1 AND owner_id = \\$2").
		WithArgs(docID, "user1").
		WillReturnRows(docRow(docID, "user1", "old", "old-content", 1))
	mock.ExpectQuery("SELECT lease_id, holder_id, created_at, expires_at").
		WithArgs(docID).
		WillReturnRows(activeLeaseRow(leaseID, "user1"))
	mock.ExpectQuery("UPDATE documents").
		WithArgs("new", "new-content", docID, "user1").
		WillReturnRows(docRow(docID, "user1", "new", "new-content", 2))
	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(0, 1))

	doc, err := svc.Update("user1", docID, model.UpdateDocRequest{
		Title: "new", Content: "new-content", LeaseID: leaseID,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Version)
	assert.Equal(t, "new", doc.Title)
	assert.Equal(t, 2, spy.version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateWithWrongLeaseIsConflict(t *testing.T) {
	svc, mock, spy := newService(t)
	docID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1 AND owner_id = \\$2").
		WithArgs(docID, "user1").
		WillReturnRows(docRow(docID, "user1", "t", "c", 3))
	mock.ExpectQuery("SELECT lease_id, holder_id, created_at, expires_at").
		WithArgs(docID).
		WillReturnRows(activeLeaseRow(uuid.New(), "user1"))

	_, err := svc.Update("user1", docID, model.UpdateDocRequest{
		Title: "t", Content: "c", LeaseID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Zero(t, spy.calls)
	assert.NoError(t, mock.ExpectationsWereMet(), "the write must never reach the documents table")
}

func TestUpdateWithoutAnyLeaseIsConflict(t *testing.T) {
	svc, mock, _ := newService(t)
	docID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1 AND owner_id = \\$2").
		WithArgs(docID, "user1").
		WillReturnRows(docRow(docID, "user1", "t", "c", 1))
	mock.ExpectQuery("SELECT lease_id, holder_id, created_at, expires_at").
		WithArgs(docID).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Update("user1", docID, model.UpdateDocRequest{
		Title: "t", Content: "c", LeaseID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForeignDocumentIsNotFound(t *testing.T) {
	svc, mock, _ := newService(t)
	docID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = \\$1 AND owner_id = \\$2").
		WithArgs(docID, "user2").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Get("user2", docID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "another user's document must look nonexistent")
	assert.NoError(t, mock.ExpectationsWereMet())
}
