package ledger

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func TestRedisLockExcludesSecondHolder(t *testing.T) {
	t.Parallel()

	store := newFakeRedis()
	first, err := NewRedisLock(store, "melisse:lock:ledger", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, err := NewRedisLock(store, "melisse:lock:ledger", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ctx := context.Background()
	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire = (%v, %v)", ok, err)
	}
	if ok, err := second.Acquire(ctx); err != nil || ok {
		t.Fatalf("second acquire should be excluded, got (%v, %v)", ok, err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, err := second.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire after release = (%v, %v)", ok, err)
	}
}

func TestRedisLockReleaseIsOwnerScoped(t *testing.T) {
	t.Parallel()

	store := newFakeRedis()
	lock, err := NewRedisLock(store, "melisse:lock:ledger", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}
	// Simulate expiry plus takeover by another writer.
	store.values["melisse:lock:ledger"] = "someone-else"

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["melisse:lock:ledger"] != "someone-else" {
		t.Fatal("release must not free another writer's lock")
	}

	// Releasing with no hold is a no-op.
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("idle release: %v", err)
	}
}
