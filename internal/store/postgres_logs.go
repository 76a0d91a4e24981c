package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mesmaili/alias-sms/internal/model"
)

type PostgresLogStore struct {
	db *sql.DB
}

func NewPostgresLogStore(db *sql.DB) *PostgresLogStore {
	return &PostgresLogStore{db: db}
}

func (s *PostgresLogStore) Append(ctx context.Context, entry model.SmsLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sms_logs (id, ts, alias, masked_phone, message_preview, status, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		entry.ID,
		entry.Timestamp,
		entry.Alias,
		entry.MaskedPhone,
		entry.MessagePreview,
		string(entry.Status),
		nullString(entry.FailureReason),
	)
	return err
}

func (s *PostgresLogStore) List(ctx context.Context, limit, offset int) ([]model.SmsLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, alias, masked_phone, message_preview, status, failure_reason
		FROM sms_logs
		ORDER BY ts DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SmsLogEntry
	for rows.Next() {
		var e model.SmsLogEntry
		var status string
		var reason sql.NullString

		if err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.Alias,
			&e.MaskedPhone,
			&e.MessagePreview,
			&status,
			&reason,
		); err != nil {
			return nil, err
		}

		e.Status = model.Status(status)
		if reason.Valid {
			r := reason.String
			e.FailureReason = &r
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sms_logs WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
