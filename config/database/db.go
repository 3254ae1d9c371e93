package database

import (
	"database/sql"
	"time"

	"securenotes/pkg/logger"

	_ "github.com/lib/pq"
)

// Connect opens the postgres connection and verifies it with a short retry
// loop before handing it back.
func Connect(connStr string) *sql.DB {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		logger.Sugar.Fatalf("Failed to open database connection: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			logger.Sugar.Info("Successfully connected to the database")
			return db
		}
		logger.Sugar.Infof("Database connection failed, retrying in 2s... (%v)", err)
		time.Sleep(2 * time.Second)
	}
	logger.Sugar.Fatalf("Could not connect to database after retries: %v", err)
	return nil
}

// EnsureSchema creates the tables the stores expect. Statements are
// idempotent so startup is safe against an already-initialized database.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id         UUID PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			version    INTEGER NOT NULL CHECK (version >= 1)
		)`,
		`CREATE INDEX IF NOT EXISTS documents_owner_idx ON documents (owner_id, updated_at DESC)`,
		`CREATE TABLE IF NOT EXISTS leases (
			document_id UUID PRIMARY KEY,
			lease_id    UUID NOT NULL,
			holder_id   TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			expires_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS shares (
			share_id    UUID PRIMARY KEY,
			owner_id    TEXT NOT NULL,
			grantee_id  TEXT NOT NULL,
			document_id UUID NOT NULL,
			mode        TEXT NOT NULL CHECK (mode IN ('ro', 'rw')),
			created_at  TIMESTAMPTZ NOT NULL,
			expires_at  TIMESTAMPTZ,
			revoked     BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS shares_owner_idx ON shares (owner_id)`,
		`CREATE TABLE IF NOT EXISTS events (
			seq         BIGSERIAL PRIMARY KEY,
			event_id    UUID NOT NULL UNIQUE,
			event_type  TEXT NOT NULL,
			ts          TIMESTAMPTZ NOT NULL,
			owner_id    TEXT NOT NULL,
			document_id UUID,
			lease_id    UUID,
			meta        JSONB NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS events_owner_seq_idx ON events (owner_id, seq)`,
		`CREATE TABLE IF NOT EXISTS replication_seen (
			owner_id   TEXT NOT NULL,
			event_id   UUID NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (owner_id, event_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
