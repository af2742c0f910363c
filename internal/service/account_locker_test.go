package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestInMemoryAccountLockerSerializesPerKey(t *testing.T) {
	locker := NewInMemoryAccountLocker(time.Second)
	var (
		active  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "acct-1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			if active.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	if overlap.Load() {
		t.Fatal("expected lock holders not to overlap")
	}
	if len(locker.locks) != 0 {
		t.Fatalf("expected lock table to be empty, got %d entries", len(locker.locks))
	}
}

func TestInMemoryAccountLockerTimeoutAndIndependentKeys(t *testing.T) {
	locker := NewInMemoryAccountLocker(20 * time.Millisecond)
	unlock, err := locker.Lock(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := locker.Lock(context.Background(), "acct-1"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	other, err := locker.Lock(context.Background(), "acct-2")
	if err != nil {
		t.Fatalf("expected unrelated key to lock immediately: %v", err)
	}
	other()
	unlock()
	unlock()

	again, err := locker.Lock(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("expected relock after release: %v", err)
	}
	again()
}

func TestInMemoryAccountLockerHonorsCancellation(t *testing.T) {
	locker := NewInMemoryAccountLocker(time.Second)
	unlock, _ := locker.Lock(context.Background(), "acct-1")
	defer unlock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := locker.Lock(ctx, "acct-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func newRedisLockerForTest(t *testing.T, wait time.Duration) (*miniredis.Miniredis, *RedisAccountLocker) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		m.Close()
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return m, NewRedisAccountLocker(client, "lock_test", 5*time.Second, wait, logger)
}

func TestRedisAccountLockerAcquireReleaseAndTTL(t *testing.T) {
	m, locker := newRedisLockerForTest(t, 60*time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "acct-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	key := "lock_test:account_lock:acct-1"
	if !m.Exists(key) {
		t.Fatalf("expected %s to exist", key)
	}
	if ttl := m.TTL(key); ttl <= 0 || ttl > 5*time.Second {
		t.Fatalf("expected lock ttl within 5s, got %v", ttl)
	}
	if _, err := locker.Lock(ctx, "acct-1"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout while held, got %v", err)
	}
	unlock()
	if m.Exists(key) {
		t.Fatal("expected key deleted on release")
	}
	again, err := locker.Lock(ctx, "acct-1")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}

func TestRedisAccountLockerReleaseOnlyOwnLock(t *testing.T) {
	m, locker := newRedisLockerForTest(t, 60*time.Millisecond)
	unlock, err := locker.Lock(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	// Simulate expiry and takeover by another instance.
	key := "lock_test:account_lock:acct-1"
	if err := m.Set(key, "someone-else"); err != nil {
		t.Fatalf("overwrite key: %v", err)
	}
	unlock()
	if got, _ := m.Get(key); got != "someone-else" {
		t.Fatalf("expected foreign lock to survive release, got %q", got)
	}
}

func TestRedisAccountLockerWaitsForRelease(t *testing.T) {
	_, locker := newRedisLockerForTest(t, time.Second)
	unlock, err := locker.Lock(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	go func() {
		time.Sleep(40 * time.Millisecond)
		unlock()
	}()
	start := time.Now()
	second, err := locker.Lock(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("expected second lock after release: %v", err)
	}
	second()
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("expected second caller to wait for the first")
	}
}

func TestRedisAccountLockerBackendError(t *testing.T) {
	bad := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 20 * time.Millisecond, ReadTimeout: 20 * time.Millisecond, WriteTimeout: 20 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = bad.Close() })
	locker := NewRedisAccountLocker(bad, "", time.Second, 500*time.Millisecond, nil)
	_, err := locker.Lock(context.Background(), "acct-1")
	if err == nil || errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected backend error, got %v", err)
	}

	if _, err := NewRedisAccountLocker(nil, "", time.Second, time.Second, nil).Lock(context.Background(), "k"); err == nil {
		t.Fatal("expected nil client error")
	}
}
