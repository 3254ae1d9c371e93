package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"securenotes/internal/share/model"
	"securenotes/pkg/logger"

	"github.com/google/uuid"
)

// ShareRepository persists shares keyed globally by share id. The primary
// key on share_id doubles as the share-to-owner index, so resolving a share
// never scans across owners.
type ShareRepository struct {
	DB *sql.DB
}

func NewShareRepository(db *sql.DB) *ShareRepository {
	return &ShareRepository{DB: db}
}

func (r *ShareRepository) Create(s model.Share) error {
	_, err := r.DB.Exec(
		`INSERT INTO shares (share_id, owner_id, grantee_id, document_id, mode, created_at, expires_at, revoked)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ShareID, s.OwnerID, s.GranteeID, s.DocumentID, s.Mode, s.CreatedAt, s.ExpiresAt, s.Revoked)
	if err != nil {
		logger.Sugar.Errorf("Failed to create share %s: %v", s.ShareID, err)
		return fmt.Errorf("create share: %w", err)
	}
	return nil
}

// Get looks the share up by id alone; found is false when no record exists.
func (r *ShareRepository) Get(shareID uuid.UUID) (model.Share, bool, error) {
	row := r.DB.QueryRow(
		`SELECT share_id, owner_id, grantee_id, document_id, mode, created_at, expires_at, revoked
		 FROM shares WHERE share_id = $1`,
		shareID)
	var s model.Share
	err := row.Scan(&s.ShareID, &s.OwnerID, &s.GranteeID, &s.DocumentID, &s.Mode, &s.CreatedAt, &s.ExpiresAt, &s.Revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Share{}, false, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get share %s: %v", shareID, err)
		return model.Share{}, false, fmt.Errorf("get share: %w", err)
	}
	return s, true, nil
}

// Revoke sets the revoked flag. Returns false when no such share exists
// for that owner.
func (r *ShareRepository) Revoke(ownerID string, shareID uuid.UUID) (bool, error) {
	res, err := r.DB.Exec(
		`UPDATE shares SET revoked = TRUE WHERE share_id = $1 AND owner_id = $2`,
		shareID, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to revoke share %s: %v", shareID, err)
		return false, fmt.Errorf("revoke share: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke share: %w", err)
	}
	return n > 0, nil
}
