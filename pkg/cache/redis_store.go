package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding the image mapping.
const DefaultRedisKey = "gallery:image_metadata"

// RedisStore keeps the mapping in one Redis hash (field = cache key,
// value = JSON entry). Save replaces the hash inside MULTI/EXEC, so a
// concurrent Load sees either the previous or the new mapping.
type RedisStore struct {
	redis *redis.Client
	key   string
}

// NewRedisStore creates a Redis-backed store. An empty key selects
// DefaultRedisKey.
func NewRedisStore(redisClient *redis.Client, key string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{redis: redisClient, key: key}
}

// Load reads the whole hash. A missing hash is an empty mapping. Fields that
// do not decode are skipped and reported as ErrInvalidEntry alongside the
// entries that did.
func (s *RedisStore) Load(ctx context.Context) (map[string]Entry, error) {
	fields, err := s.redis.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: fmt.Errorf("redis hgetall: %w", err)}
	}

	entries := make(map[string]Entry, len(fields))
	var invalid []string
	for k, v := range fields {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			invalid = append(invalid, k)
			continue
		}
		entries[k] = e
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return entries, &PersistenceError{Op: "load", Err: fmt.Errorf("%w: fields %s", ErrInvalidEntry, strings.Join(invalid, ", "))}
	}
	return entries, nil
}

// Save replaces the hash with entries.
func (s *RedisStore) Save(ctx context.Context, entries map[string]Entry) error {
	values := make(map[string]any, len(entries))
	for k, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return &PersistenceError{Op: "save", Err: fmt.Errorf("marshal entry %s: %w", k, err)}
		}
		values[k] = data
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("redis multi: %w", err)}
	}
	return nil
}
