package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockRepository implements advisory locks on Redis with owner tokens.
type LockRepository struct {
	client *redis.Client
	prefix string
}

// NewLockRepository constructs a LockRepository.
func NewLockRepository(client *redis.Client, prefix string) *LockRepository {
	if prefix == "" {
		prefix = "lock:"
	}
	return &LockRepository{client: client, prefix: prefix}
}

// Acquire tries SET NX PX and reports whether the lock was taken.
func (r *LockRepository) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, errors.New("redis client not configured")
	}
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis acquire %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes the lock when token still owns it.
func (r *LockRepository) Release(ctx context.Context, key, token string) (bool, error) {
	if r.client == nil {
		return false, errors.New("redis client not configured")
	}
	deleted, err := releaseScript.Run(ctx, r.client, []string{r.prefix + key}, token).Int()
	if err != nil {
		return false, fmt.Errorf("redis release %s: %w", key, err)
	}
	return deleted == 1, nil
}
