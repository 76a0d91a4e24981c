package store

import (
	"context"
	"time"

	"github.com/mesmaili/alias-sms/internal/model"
)

type AliasStore interface {
	// Upsert assigns a new id when entry.ID is empty, otherwise replaces the
	// record in place. The normalized alias is recomputed and UpdatedAt
	// refreshed on every call. A collision on the normalized alias with a
	// different id resolves last-writer-wins.
	Upsert(ctx context.Context, entry model.AliasEntry) (model.AliasEntry, error)
	FindByID(ctx context.Context, id string) (model.AliasEntry, error)
	FindByNormalizedAlias(ctx context.Context, key string) (model.AliasEntry, error)
	// Delete is idempotent; a missing id is not an error.
	Delete(ctx context.Context, id string) error
	// List returns entries ordered by display alias ascending.
	List(ctx context.Context) ([]model.AliasEntry, error)
}

type LogStore interface {
	Append(ctx context.Context, entry model.SmsLogEntry) error
	// List returns entries newest first.
	List(ctx context.Context, limit, offset int) ([]model.SmsLogEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
