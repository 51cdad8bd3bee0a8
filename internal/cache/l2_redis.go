package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLayer is the optional L2 distributed KV layer (spec.md §4.3, TTL
// 30min-2h), grounded on jordigilh-kubernaut's redis/go-redis/v9 client
// usage pattern (redis.NewClient(&redis.Options{...})).
type RedisLayer struct {
	client *redis.Client
	prefix string
}

// NewRedisLayer wraps an existing *redis.Client. Keys are namespaced with
// prefix so multiple callers can share one Redis instance.
func NewRedisLayer(client *redis.Client, prefix string) *RedisLayer {
	return &RedisLayer{client: client, prefix: prefix}
}

func (r *RedisLayer) Name() string { return "l2" }

func (r *RedisLayer) namespaced(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *RedisLayer) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, r.namespaced(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	entry, err := decodeEntry(raw)
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (r *RedisLayer) Set(ctx context.Context, key string, entry Entry) error {
	raw, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	ttl := entry.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return r.client.Set(ctx, r.namespaced(key), raw, ttl).Err()
}

func (r *RedisLayer) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.namespaced(key)).Err()
}

func (r *RedisLayer) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, r.namespaced(prefix)+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisLayer) Flush(ctx context.Context) error {
	return r.DeletePrefix(ctx, "")
}
