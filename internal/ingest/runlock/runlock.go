// Package runlock serializes pipeline runs across deployments. With Redis
// configured the lock is distributed; without it, a process-local lock
// keeps the single-instance behavior.
package runlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"trialsearch/internal/platform/redis"
)

// Lock guards one pipeline run. Acquire reports false when another holder
// has the lock; Release is a no-op for a lock that was not acquired.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// New picks the distributed lock when a Redis client is available and the
// local lock otherwise.
func New(client *redis.Client, key string, ttl time.Duration) Lock {
	if client == nil {
		return &localLock{}
	}
	return &redisLock{client: client, key: key, ttl: ttl, holder: uuid.NewString()}
}

type redisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	holder string
}

func (l *redisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.holder, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	return ok, nil
}

// releaseScript deletes the key only when this process still holds it, so
// an expired-and-reacquired lock is never released out from under the new
// holder.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *redisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.holder).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

type localLock struct {
	mu   sync.Mutex
	held bool
}

func (l *localLock) Acquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *localLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
