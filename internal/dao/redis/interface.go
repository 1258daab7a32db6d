package redis

import (
	"context"
	"time"
)

// CacheService cache operations the services depend on.
type CacheService interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get returns "" and nil for a missing key.
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error

	AddToSet(ctx context.Context, key string, members ...interface{}) error
	GetSetMembers(ctx context.Context, key string) ([]string, error)
	IsSetMember(ctx context.Context, key string, member interface{}) (bool, error)
	RemoveFromSet(ctx context.Context, key string, members ...interface{}) error
}

// AsyncCacheService adds fire-and-forget cache writes off the request path.
type AsyncCacheService interface {
	CacheService
	SubmitTask(action func())
	Close() error
}
