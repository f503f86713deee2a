// Package redislock provides a single-holder lock in Redis that keeps
// overlapping pipeline runs from racing on the clean dataset and store.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder owns the lock.
var ErrNotAcquired = errors.New("redislock: lock held by another run")

// releaseScript deletes the key only if it still holds our token, so a
// run that outlived its TTL cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewClient parses redisURL and verifies connectivity.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// Locker takes a named lock with a TTL.
type Locker struct {
	rdb redis.Cmdable
	key string
	ttl time.Duration
}

func New(rdb redis.Cmdable, key string, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, key: key, ttl: ttl}
}

// Lock is a held lock.
type Lock struct {
	locker *Locker
	token  string
}

// Acquire takes the lock or returns ErrNotAcquired without waiting.
func (l *Locker) Acquire(ctx context.Context) (*Lock, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &Lock{locker: l, token: token}, nil
}

// Release frees the lock if this holder still owns it. Releasing an
// expired or stolen lock is not an error.
func (lk *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, lk.locker.rdb, []string{lk.locker.key}, lk.token).Err(); err != nil {
		return fmt.Errorf("release %s: %w", lk.locker.key, err)
	}
	return nil
}

// TryLock acquires the lock and returns its release function.
func (l *Locker) TryLock(ctx context.Context) (func(context.Context) error, error) {
	lk, err := l.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return lk.Release, nil
}
