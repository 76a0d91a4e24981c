package store

import (
	"context"
	"database/sql"
)

// Migrate creates the two collections if they do not exist. Schema changes
// are additive only; there is no versioned migration machinery.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS aliases (
			id                 TEXT PRIMARY KEY,
			alias              TEXT NOT NULL,
			normalized_alias   TEXT NOT NULL,
			phone_number       TEXT NOT NULL,
			predefined_message TEXT NOT NULL,
			default_prefix     TEXT,
			created_at         TIMESTAMPTZ NOT NULL,
			updated_at         TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS aliases_normalized_alias_idx
			ON aliases (normalized_alias)`,
		`CREATE TABLE IF NOT EXISTS sms_logs (
			id              TEXT PRIMARY KEY,
			ts              TIMESTAMPTZ NOT NULL,
			alias           TEXT NOT NULL,
			masked_phone    TEXT NOT NULL,
			message_preview TEXT NOT NULL,
			status          TEXT NOT NULL,
			failure_reason  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS sms_logs_ts_idx ON sms_logs (ts DESC)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
