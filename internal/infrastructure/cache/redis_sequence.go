package cache

import (
	"context"
	"fmt"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/redis/go-redis/v9"
)

// DefaultCounterKeyPrefix namespaces document counters in Redis.
const DefaultCounterKeyPrefix = "procurement:counter:"

// RedisSequence is a procurement.NumberSequence backed by Redis INCR.
// INCR is atomic, so concurrent callers never observe the same value.
type RedisSequence struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisSequence creates a RedisSequence on an existing client
func NewRedisSequence(client *redis.Client) *RedisSequence {
	return &RedisSequence{client: client, keyPrefix: DefaultCounterKeyPrefix}
}

// Key returns the Redis key holding the (docType, year) counter
func (s *RedisSequence) Key(docType procurement.DocumentType, year int) string {
	return fmt.Sprintf("%s%s:%d", s.keyPrefix, docType, year)
}

// Next increments the (docType, year) counter and returns the new value
func (s *RedisSequence) Next(ctx context.Context, docType procurement.DocumentType, year int) (int64, error) {
	v, err := s.client.Incr(ctx, s.Key(docType, year)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", s.Key(docType, year), err)
	}
	return v, nil
}

var _ procurement.NumberSequence = (*RedisSequence)(nil)
