package cache

import (
	"context"

	"github.com/mesmaili/alias-sms/internal/model"
)

// AliasCache is a read-through cache keyed by normalized alias. Misses and
// cache failures are never fatal; callers fall back to the store.
type AliasCache interface {
	Get(ctx context.Context, key string) (model.AliasEntry, bool, error)
	Set(ctx context.Context, key string, entry model.AliasEntry) error
	Invalidate(ctx context.Context, key string) error
}

// Noop is used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (model.AliasEntry, bool, error) {
	return model.AliasEntry{}, false, nil
}

func (Noop) Set(context.Context, string, model.AliasEntry) error { return nil }

func (Noop) Invalidate(context.Context, string) error { return nil }
