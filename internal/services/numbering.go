package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"

	"printqueue/internal/store"
)

// Numberer hands out queue numbers.
type Numberer interface {
	Next(ctx context.Context) (int, error)
	// Reset restarts numbering after the live queue is cleared.
	Reset(ctx context.Context) error
}

// QueryNumberer reads the highest live queue number and adds one. Two
// concurrent callers can receive the same number; use RedisNumberer where
// more than one writer is expected.
type QueryNumberer struct {
	store store.Store
}

func NewQueryNumberer(st store.Store) *QueryNumberer {
	return &QueryNumberer{store: st}
}

func (n *QueryNumberer) Next(ctx context.Context) (int, error) {
	last, err := highestQueueNumber(ctx, n.store)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

func (n *QueryNumberer) Reset(context.Context) error { return nil }

func highestQueueNumber(ctx context.Context, st store.Store) (int, error) {
	docs, err := st.Query(ctx, store.CollectionQueue, store.Query{
		OrderBy: []store.Order{store.Desc("queueNumber")},
		Limit:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("read last queue number: %w", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	return cast.ToInt(docs[0].Fields["queueNumber"]), nil
}

const (
	// incrIfExistsScript increments the counter only once it has been seeded.
	incrIfExistsScript = `
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('INCR', KEYS[1])
end
return false
`
	// seedAndIncrScript seeds the counter from the live queue unless another
	// caller got there first, then increments it.
	seedAndIncrScript = `
redis.call('SET', KEYS[1], ARGV[1], 'NX')
return redis.call('INCR', KEYS[1])
`
)

// RedisNumberer keeps the counter in Redis so every enqueue gets a distinct,
// increasing number no matter how many writers race.
type RedisNumberer struct {
	redis redis.Cmdable
	store store.Store
	key   string
}

func NewRedisNumberer(rdb redis.Cmdable, st store.Store, key string) *RedisNumberer {
	if key == "" {
		key = "printqueue:counter"
	}
	return &RedisNumberer{redis: rdb, store: st, key: key}
}

func (n *RedisNumberer) Next(ctx context.Context) (int, error) {
	v, err := n.redis.Eval(ctx, incrIfExistsScript, []string{n.key}).Int()
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("increment queue counter: %w", err)
	}

	seed, err := highestQueueNumber(ctx, n.store)
	if err != nil {
		return 0, err
	}
	v, err = n.redis.Eval(ctx, seedAndIncrScript, []string{n.key}, seed).Int()
	if err != nil {
		return 0, fmt.Errorf("seed queue counter: %w", err)
	}
	return v, nil
}

func (n *RedisNumberer) Reset(ctx context.Context) error {
	if err := n.redis.Del(ctx, n.key).Err(); err != nil {
		return fmt.Errorf("reset queue counter: %w", err)
	}
	return nil
}
