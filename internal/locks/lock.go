// Package locks provides Redis-backed mutual exclusion for cron leadership and
// per-record write serialization.
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * time.Second

// ErrNotAcquired is returned by WithLock when another owner holds the key.
var ErrNotAcquired = errors.New("lock held by another owner")

// Store defines the Redis operations the locks need.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock implements a single named lock using SETNX + TTL and an owner token.
type RedisLock struct {
	store Store
	key   string
	ttl   time.Duration
	owner string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(store Store, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis store required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

// Key returns the Redis key guarded by the lock.
func (l *RedisLock) Key() string {
	return l.key
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches, so an expired
// lock re-acquired by someone else is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	value, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			l.owner = ""
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		l.owner = ""
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.owner = ""
	return nil
}

// KeyFunc maps a record identifier to its lock key.
type KeyFunc func(id string) string

// Keyed hands out per-record locks sharing one store and TTL.
type Keyed struct {
	store Store
	keyFn KeyFunc
	ttl   time.Duration
}

// NewKeyed builds a per-record locker.
func NewKeyed(store Store, keyFn KeyFunc, ttl time.Duration) (*Keyed, error) {
	if store == nil {
		return nil, errors.New("redis store required for lock")
	}
	if keyFn == nil {
		return nil, errors.New("lock key func required")
	}
	return &Keyed{store: store, keyFn: keyFn, ttl: ttl}, nil
}

// WithLock runs fn while holding the lock for id. It returns ErrNotAcquired
// without calling fn when the lock is held elsewhere.
func (k *Keyed) WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) (err error) {
	lock, err := NewRedisLock(k.store, k.keyFn(id), k.ttl)
	if err != nil {
		return err
	}
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	defer func() {
		if relErr := lock.Release(context.WithoutCancel(ctx)); relErr != nil && err == nil {
			err = relErr
		}
	}()
	return fn(ctx)
}
