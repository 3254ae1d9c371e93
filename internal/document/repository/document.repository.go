package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"securenotes/internal/apperr"
	"securenotes/internal/document/model"
	"securenotes/pkg/logger"
	"securenotes/pkg/metrics"

	"github.com/google/uuid"
)

const docColumns = "id, owner_id, title, content, created_at, updated_at, version"

// DocumentRepository persists documents. Every mutation is a single
// statement so it is visible to readers fully or not at all; the repository
// itself takes no locks and trusts the service layer to have validated a
// lease first.
type DocumentRepository struct {
	DB      *sql.DB
	Metrics *metrics.Registry
}

func NewDocumentRepository(db *sql.DB, m *metrics.Registry) *DocumentRepository {
	return &DocumentRepository{DB: db, Metrics: m}
}

func (r *DocumentRepository) Create(doc model.Document) error {
	_, err := r.DB.Exec(
		`INSERT INTO documents (id, owner_id, title, content, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.OwnerID, doc.Title, doc.Content, doc.CreatedAt, doc.UpdatedAt, doc.Version)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document %s: %v", doc.ID, err)
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// Get returns the document only if it belongs to ownerID. Requests for
// another user's document come back as not-found so existence never leaks.
func (r *DocumentRepository) Get(ownerID string, docID uuid.UUID) (model.Document, error) {
	row := r.DB.QueryRow(
		`SELECT `+docColumns+` FROM documents WHERE id = $1 AND owner_id = $2`,
		docID, ownerID)
	var d model.Document
	err := row.Scan(&d.ID, &d.OwnerID, &d.Title, &d.Content, &d.CreatedAt, &d.UpdatedAt, &d.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, apperr.ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get document %s: %v", docID, err)
		return model.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// List returns the owner's documents, newest first. Rows that fail to
// decode are counted and skipped so one bad record does not hide the rest.
func (r *DocumentRepository) List(ownerID string) ([]model.Document, error) {
	rows, err := r.DB.Query(
		`SELECT `+docColumns+` FROM documents WHERE owner_id = $1 ORDER BY updated_at DESC`,
		ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents for %s: %v", ownerID, err)
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Title, &d.Content, &d.CreatedAt, &d.UpdatedAt, &d.Version); err != nil {
			r.Metrics.IncCorruptRecordSkipped()
			logger.Sugar.Warnf("Skipping unreadable document row for owner %s: %v", ownerID, err)
			continue
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Update overwrites title and content and bumps the version by exactly one,
// atomically. It returns the new state.
func (r *DocumentRepository) Update(ownerID string, docID uuid.UUID, title, content string) (model.Document, error) {
	row := r.DB.QueryRow(
		`UPDATE documents
		 SET title = $1, content = $2, updated_at = NOW(), version = version + 1
		 WHERE id = $3 AND owner_id = $4
		 RETURNING `+docColumns,
		title, content, docID, ownerID)
	var d model.Document
	err := row.Scan(&d.ID, &d.OwnerID, &d.Title, &d.Content, &d.CreatedAt, &d.UpdatedAt, &d.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, apperr.ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to update document %s: %v", docID, err)
		return model.Document{}, fmt.Errorf("update document: %w", err)
	}
	return d, nil
}

// ApplyReplica installs a replicated snapshot with last-writer-wins
// semantics: the snapshot is taken iff no local copy exists or the incoming
// version is strictly greater. Equal or older versions leave local state
// untouched. Returns whether local state changed.
func (r *DocumentRepository) ApplyReplica(doc model.Document) (bool, error) {
	res, err := r.DB.Exec(
		`INSERT INTO documents (id, owner_id, title, content, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET owner_id = EXCLUDED.owner_id, title = EXCLUDED.title, content = EXCLUDED.content,
		     created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at, version = EXCLUDED.version
		 WHERE documents.version < EXCLUDED.version`,
		doc.ID, doc.OwnerID, doc.Title, doc.Content, doc.CreatedAt, doc.UpdatedAt, doc.Version)
	if err != nil {
		logger.Sugar.Errorf("Failed to apply replica snapshot for document %s: %v", doc.ID, err)
		return false, fmt.Errorf("apply replica: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply replica: %w", err)
	}
	return n > 0, nil
}
