package repository

import (
	"database/sql"
	"fmt"

	"securenotes/pkg/logger"

	"github.com/google/uuid"
)

// SeenRepository is the per-owner set of already-applied event ids, the
// sole deduplication mechanism for replication.
type SeenRepository struct {
	DB *sql.DB
}

func NewSeenRepository(db *sql.DB) *SeenRepository {
	return &SeenRepository{DB: db}
}

// MarkSeen records the event id and reports whether it was newly seen.
// The conflict-free insert makes replayed and concurrently-pushed batches
// agree on exactly one winner per event id.
func (r *SeenRepository) MarkSeen(ownerID string, eventID uuid.UUID) (bool, error) {
	res, err := r.DB.Exec(
		`INSERT INTO replication_seen (owner_id, event_id, applied_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT DO NOTHING`,
		ownerID, eventID)
	if err != nil {
		logger.Sugar.Errorf("Failed to mark event %s seen for owner %s: %v", eventID, ownerID, err)
		return false, fmt.Errorf("mark seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark seen: %w", err)
	}
	return n > 0, nil
}
