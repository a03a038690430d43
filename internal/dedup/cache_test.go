package dedup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// fakeStore is an in-memory SetNX with real TTL expiry.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]time.Time)}
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if expiry, ok := f.entries[key]; ok && time.Now().Before(expiry) {
		return redis.NewBoolResult(false, nil)
	}
	f.entries[key] = time.Now().Add(ttl)
	return redis.NewBoolResult(true, nil)
}

func TestCache_FirstAcquireWins(t *testing.T) {
	c := NewCache(newFakeStore(), zap.NewNop())
	ctx := context.Background()

	if !c.Acquire(ctx, "prazo:p-1:prazo.expiring_1d", time.Hour) {
		t.Fatal("first acquire should succeed")
	}
	if c.Acquire(ctx, "prazo:p-1:prazo.expiring_1d", time.Hour) {
		t.Fatal("second acquire inside the window should be suppressed")
	}
}

func TestCache_DistinctKeysIndependent(t *testing.T) {
	c := NewCache(newFakeStore(), zap.NewNop())
	ctx := context.Background()

	if !c.Acquire(ctx, "prazo:p-1:prazo.expiring_1d", time.Hour) {
		t.Fatal("first key should acquire")
	}
	if !c.Acquire(ctx, "prazo:p-2:prazo.expiring_1d", time.Hour) {
		t.Fatal("unrelated key should acquire")
	}
}

func TestCache_ExpiredKeyReacquires(t *testing.T) {
	store := newFakeStore()
	c := NewCache(store, zap.NewNop())
	ctx := context.Background()

	if !c.Acquire(ctx, "k", 10*time.Millisecond) {
		t.Fatal("first acquire should succeed")
	}
	time.Sleep(20 * time.Millisecond)
	if !c.Acquire(ctx, "k", 10*time.Millisecond) {
		t.Fatal("acquire after expiry should succeed")
	}
}

// TestCache_DegradesOpen verifies that a broken store never suppresses.
func TestCache_DegradesOpen(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	c := NewCache(store, zap.NewNop())

	if !c.Acquire(context.Background(), "k", time.Hour) {
		t.Fatal("store failure must degrade open, not suppress")
	}
}
