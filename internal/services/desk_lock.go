package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"printqueue/internal/status"
	"printqueue/models"
)

// DeskLocker serialises call-next and complete for one desk.
type DeskLocker interface {
	Lock(ctx context.Context, desk models.Desk) (unlock func(), err error)
}

// LocalLocker serialises desk operations inside one process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[models.Desk]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[models.Desk]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, desk models.Desk) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[desk]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[desk] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("lock %s: %w", desk, ctx.Err())
	}
}

const releaseLockScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisLocker serialises desk operations across every instance sharing the
// Redis server. The lock expires after ttl so a crashed holder cannot wedge
// a desk.
type RedisLocker struct {
	redis    redis.Cmdable
	prefix   string
	ttl      time.Duration
	wait     time.Duration
	retry    time.Duration
	newToken func() string
}

func NewRedisLocker(rdb redis.Cmdable, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		redis:    rdb,
		prefix:   "printqueue:lock:desk:",
		ttl:      ttl,
		wait:     wait,
		retry:    25 * time.Millisecond,
		newToken: uuid.NewString,
	}
}

func (l *RedisLocker) key(desk models.Desk) string {
	return l.prefix + string(desk)
}

func (l *RedisLocker) Lock(ctx context.Context, desk models.Desk) (func(), error) {
	key := l.key(desk)
	token := l.newToken()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", desk, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock %s: %w", desk, status.ErrLockTimeout)
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", desk, ctx.Err())
		}
	}

	return func() {
		// Release even when the caller's context is already cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// On failure the key still expires after ttl.
		_ = l.redis.Eval(ctx, releaseLockScript, []string{key}, token).Err()
	}, nil
}
