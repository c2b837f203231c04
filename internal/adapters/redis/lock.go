package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LeaderLock is a best-effort lease held by at most one instance at a time
type LeaderLock struct {
	client *redis.Client
	key    string
	token  string
}

// NewLeaderLock creates a lock on key with a token unique to this process
func NewLeaderLock(client *redis.Client, key string) *LeaderLock {
	return &LeaderLock{
		client: client,
		key:    key,
		token:  uuid.New().String(),
	}
}

// Acquire takes the lease for ttl. Returns false if another holder has it.
func (l *LeaderLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Release gives the lease up if we still hold it
func (l *LeaderLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return nil
}
