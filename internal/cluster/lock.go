// internal/cluster/lock.go
package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes the scan-decide-commit critical section of a
// classification. Without it, two concurrent classifications of similar
// sites against a sparse template set can both decide to create a
// template for what should become one cluster.
type Locker interface {
	// Acquire blocks until the lock is held or the context is done. The
	// returned function releases the lock.
	Acquire(ctx context.Context) (release func(), err error)
}

// MutexLocker serializes classifications within one process.
type MutexLocker struct {
	mu sync.Mutex
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{}
}

func (l *MutexLocker) Acquire(ctx context.Context) (func(), error) {
	done := make(chan struct{})
	go func() {
		l.mu.Lock()
		close(done)
	}()
	select {
	case <-done:
		return l.mu.Unlock, nil
	case <-ctx.Done():
		// The goroutine will still take the mutex; drop it once it does.
		go func() {
			<-done
			l.mu.Unlock()
		}()
		return nil, ctx.Err()
	}
}

// RedisLocker serializes classifications across processes with a
// token-guarded SET NX lock.
type RedisLocker struct {
	client    *redis.Client
	key       string
	ttl       time.Duration
	retryWait time.Duration
}

// releaseScript deletes the lock only when it still holds our token, so
// an expired-and-reacquired lock is never released by a stale holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = "web-collector:classify-lock"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client:    client,
		key:       key,
		ttl:       ttl,
		retryWait: 50 * time.Millisecond,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire redis lock: %w", err)
		}
		if ok {
			release := func() {
				relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = releaseScript.Run(relCtx, l.client, []string{l.key}, token).Err()
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryWait):
		}
	}
}
