package cache

import (
	"errors"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrRedisUnavailable is returned when a Redis-only component is requested without a client.
var ErrRedisUnavailable = errors.New("redis client is not configured")

// StoreFactory builds the Redis-backed components, falling back to
// in-memory implementations where that is safe.
type StoreFactory struct {
	client                *redis.Client
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether a nil client yields an in-memory
// idempotency store. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a factory. client may be nil when Redis is disabled.
func NewStoreFactory(client *redis.Client, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		client:                client,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IdempotencyStore returns the Redis store, or the in-memory store when Redis
// is not configured and fallback is allowed.
func (f *StoreFactory) IdempotencyStore() (shared.IdempotencyStore, error) {
	if f.client != nil {
		f.logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(f.client, ""), nil
	}
	if !f.allowInMemoryFallback {
		return nil, ErrRedisUnavailable
	}
	f.logger.Warn("Redis disabled, using in-memory idempotency store. " +
		"Redelivered events may be handled again by other instances.")
	return NewInMemoryIdempotencyStore(0), nil
}

// NumberSequence returns the Redis INCR sequence. There is no in-memory
// fallback: numbers must be unique across instances.
func (f *StoreFactory) NumberSequence() (procurement.NumberSequence, error) {
	if f.client == nil {
		return nil, ErrRedisUnavailable
	}
	return NewRedisSequence(f.client), nil
}
