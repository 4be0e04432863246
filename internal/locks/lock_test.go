package locks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memStore struct {
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	store := newMemStore()
	first, err := NewRedisLock(store, "job", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "job", time.Minute)

	ok, err := first.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected first acquire, ok=%v err=%v", ok, err)
	}
	if store.ttls["job"] != time.Minute {
		t.Fatalf("expected ttl to be forwarded, got %s", store.ttls["job"])
	}
	ok, err = second.Acquire(context.Background())
	if err != nil || ok {
		t.Fatalf("expected second acquire to fail, ok=%v err=%v", ok, err)
	}
	if err := second.Release(context.Background()); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, held := store.data["job"]; !held {
		t.Fatal("non-owner release must not delete the key")
	}
	if err := first.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, held := store.data["job"]; held {
		t.Fatal("expected owner release to delete the key")
	}
}

func TestRedisLock_ReleaseSkipsForeignOwner(t *testing.T) {
	store := newMemStore()
	lock, _ := NewRedisLock(store, "job", time.Minute)
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatal("expected acquire")
	}
	store.data["job"] = "someone-else"
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.data["job"] != "someone-else" {
		t.Fatal("expected foreign owner to keep the lock")
	}
}

func TestNewRedisLock_Validation(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", time.Second); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewRedisLock(newMemStore(), "", time.Second); err == nil {
		t.Fatal("expected error for empty key")
	}
	lock, err := NewRedisLock(newMemStore(), "k", 0)
	if err != nil || lock.ttl != defaultTTL {
		t.Fatalf("expected default ttl, got %s err=%v", lock.ttl, err)
	}
}

func TestKeyed_WithLock(t *testing.T) {
	store := newMemStore()
	keyed, err := NewKeyed(store, func(id string) string { return "c:" + id }, time.Second)
	if err != nil {
		t.Fatalf("new keyed: %v", err)
	}

	ran := false
	err = keyed.WithLock(context.Background(), "1", func(ctx context.Context) error {
		ran = true
		if _, held := store.data["c:1"]; !held {
			t.Fatal("expected lock to be held during fn")
		}
		nested := keyed.WithLock(ctx, "1", func(context.Context) error {
			t.Fatal("nested call must not run")
			return nil
		})
		if !errors.Is(nested, ErrNotAcquired) {
			t.Fatalf("expected ErrNotAcquired, got %v", nested)
		}
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("expected fn to run, ran=%v err=%v", ran, err)
	}
	if _, held := store.data["c:1"]; held {
		t.Fatal("expected lock released after fn")
	}
}

func TestKeyed_PropagatesErrors(t *testing.T) {
	store := newMemStore()
	keyed, _ := NewKeyed(store, func(id string) string { return id }, time.Second)

	boom := errors.New("boom")
	if err := keyed.WithLock(context.Background(), "x", func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if _, held := store.data["x"]; held {
		t.Fatal("expected lock released after failure")
	}

	store.err = errors.New("redis down")
	if err := keyed.WithLock(context.Background(), "y", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected store error")
	}
}
