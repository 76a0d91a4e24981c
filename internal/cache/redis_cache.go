package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mesmaili/alias-sms/internal/model"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

type cachedEntry struct {
	ID                string    `json:"id"`
	Alias             string    `json:"alias"`
	NormalizedAlias   string    `json:"normalizedAlias"`
	PhoneNumber       string    `json:"phoneNumber"`
	PredefinedMessage string    `json:"predefinedMessage"`
	DefaultPrefix     *string   `json:"defaultPrefix,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func cacheKey(key string) string {
	return "alias:" + key
}

func (c *RedisCache) Get(ctx context.Context, key string) (model.AliasEntry, bool, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.AliasEntry{}, false, nil
	}
	if err != nil {
		return model.AliasEntry{}, false, err
	}

	var v cachedEntry
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.AliasEntry{}, false, err
	}

	return model.AliasEntry{
		ID:                v.ID,
		Alias:             v.Alias,
		NormalizedAlias:   v.NormalizedAlias,
		PhoneNumber:       v.PhoneNumber,
		PredefinedMessage: v.PredefinedMessage,
		DefaultPrefix:     v.DefaultPrefix,
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, entry model.AliasEntry) error {
	v := cachedEntry{
		ID:                entry.ID,
		Alias:             entry.Alias,
		NormalizedAlias:   entry.NormalizedAlias,
		PhoneNumber:       entry.PhoneNumber,
		PredefinedMessage: entry.PredefinedMessage,
		DefaultPrefix:     entry.DefaultPrefix,
		CreatedAt:         entry.CreatedAt.UTC(),
		UpdatedAt:         entry.UpdatedAt.UTC(),
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, cacheKey(key), b, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, cacheKey(key)).Err()
}
