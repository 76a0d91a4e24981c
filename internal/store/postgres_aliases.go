package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mesmaili/alias-sms/internal/model"
	"github.com/mesmaili/alias-sms/internal/resolve"
)

type PostgresAliasStore struct {
	db *sql.DB
}

func NewPostgresAliasStore(db *sql.DB) *PostgresAliasStore {
	return &PostgresAliasStore{db: db}
}

const aliasColumns = `id, alias, normalized_alias, phone_number, predefined_message, default_prefix, created_at, updated_at`

func (s *PostgresAliasStore) Upsert(ctx context.Context, entry model.AliasEntry) (model.AliasEntry, error) {
	if err := entry.Validate(); err != nil {
		return model.AliasEntry{}, err
	}

	now := time.Now().UTC()
	entry.NormalizedAlias = resolve.Normalize(entry.Alias)
	entry.UpdatedAt = now
	if entry.ID == "" {
		entry.ID = uuid.NewString()
		entry.CreatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return model.AliasEntry{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Last-writer-wins on the normalized key: an older record that would
	// collide is removed before the write.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM aliases
		WHERE normalized_alias = $1 AND id <> $2
	`, entry.NormalizedAlias, entry.ID); err != nil {
		return model.AliasEntry{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO aliases (id, alias, normalized_alias, phone_number, predefined_message, default_prefix, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			alias = EXCLUDED.alias,
			normalized_alias = EXCLUDED.normalized_alias,
			phone_number = EXCLUDED.phone_number,
			predefined_message = EXCLUDED.predefined_message,
			default_prefix = EXCLUDED.default_prefix,
			updated_at = EXCLUDED.updated_at
	`,
		entry.ID,
		entry.Alias,
		entry.NormalizedAlias,
		entry.PhoneNumber,
		entry.PredefinedMessage,
		nullString(entry.DefaultPrefix),
		entry.CreatedAt,
		entry.UpdatedAt,
	); err != nil {
		return model.AliasEntry{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.AliasEntry{}, err
	}
	return entry, nil
}

func (s *PostgresAliasStore) FindByID(ctx context.Context, id string) (model.AliasEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+aliasColumns+`
		FROM aliases
		WHERE id = $1
	`, id)
	return scanAlias(row)
}

func (s *PostgresAliasStore) FindByNormalizedAlias(ctx context.Context, key string) (model.AliasEntry, error) {
	// Duplicates must not occur given the uniqueness invariant, but the
	// lookup stays well-defined if they do: oldest record wins.
	row := s.db.QueryRowContext(ctx, `
		SELECT `+aliasColumns+`
		FROM aliases
		WHERE normalized_alias = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, key)
	return scanAlias(row)
}

func (s *PostgresAliasStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM aliases WHERE id = $1`, id)
	return err
}

func (s *PostgresAliasStore) List(ctx context.Context) ([]model.AliasEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+aliasColumns+`
		FROM aliases
		ORDER BY alias ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AliasEntry
	for rows.Next() {
		e, err := scanAlias(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlias(row rowScanner) (model.AliasEntry, error) {
	var e model.AliasEntry
	var prefix sql.NullString

	err := row.Scan(
		&e.ID,
		&e.Alias,
		&e.NormalizedAlias,
		&e.PhoneNumber,
		&e.PredefinedMessage,
		&prefix,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AliasEntry{}, model.ErrAliasNotFound
	}
	if err != nil {
		return model.AliasEntry{}, err
	}

	if prefix.Valid {
		p := prefix.String
		e.DefaultPrefix = &p
	}
	return e, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
