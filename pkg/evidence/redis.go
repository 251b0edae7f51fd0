package evidence

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// hashReader is the slice of the Redis API the source needs; *redis.Client
// satisfies it, and tests substitute a fake.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisSource reads evidence from a Redis hash whose fields are metric names
// and whose values are decimal numbers. A non-numeric field fails the whole
// fetch: partial telemetry is worse than none.
type RedisSource struct {
	client hashReader
	key    string
}

// NewRedisSource connects to addr and reads the given hash key.
func NewRedisSource(addr, password string, db int, key string) *RedisSource {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisSource{client: rdb, key: key}
}

// NewRedisSourceWithClient wires an existing client, or a fake in tests.
func NewRedisSourceWithClient(client hashReader, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

// Fetch implements Source.
func (s *RedisSource) Fetch(ctx context.Context) (Map, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("evidence: redis HGETALL %s: %w", s.key, err)
	}
	out := make(Map, len(fields))
	for name, raw := range fields {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("evidence: redis field %q is not numeric: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}
