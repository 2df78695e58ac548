// Package redis provides a repository.Repository backed by Redis, storing
// each value as a JSON string under "<prefix>:<id>".
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"nexus-support-service/internal/repository"
)

const scanBatch = 100

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient opens a go-redis client and verifies it with PING.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	log.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("Redis client connected")
	return rdb, nil
}

// Repository stores values of type T in Redis.
type Repository[T any] struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New creates a repository whose keys live under prefix. A zero ttl keeps
// values until they are deleted.
func New[T any](rdb goredis.UniversalClient, prefix string, ttl time.Duration) *Repository[T] {
	return &Repository[T]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Repository[T]) key(id string) string {
	if r.prefix == "" {
		return id
	}
	return r.prefix + ":" + id
}

func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var v T
	raw, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return v, repository.ErrNotFound
	}
	if err != nil {
		return v, fmt.Errorf("redis get %q: %w", id, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("redis unmarshal %q: %w", id, err)
	}
	return v, nil
}

func (r *Repository[T]) Put(ctx context.Context, id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis marshal %q: %w", id, err)
	}
	if err := r.rdb.Set(ctx, r.key(id), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", id, err)
	}
	return nil
}

func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del %q: %w", id, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List walks the prefix with SCAN and fetches values in batches with MGET.
// Keys that expire between the two calls are skipped.
func (r *Repository[T]) List(ctx context.Context) ([]T, error) {
	out := make([]T, 0)
	pattern := r.key("*")

	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", pattern, err)
		}

		if len(keys) > 0 {
			vals, err := r.rdb.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, fmt.Errorf("redis mget: %w", err)
			}
			for i, raw := range vals {
				s, ok := raw.(string)
				if !ok {
					continue
				}
				var v T
				if err := json.Unmarshal([]byte(s), &v); err != nil {
					return nil, fmt.Errorf("redis unmarshal %q: %w", keys[i], err)
				}
				out = append(out, v)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

var _ repository.Repository[string] = (*Repository[string])(nil)
