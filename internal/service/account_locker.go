package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sandeepkv93/otp-auth-service/internal/observability"
)

var ErrLockTimeout = errors.New("account lock wait exceeded")

// InMemoryAccountLocker is a per-key mutex for single-instance deployments.
type InMemoryAccountLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewInMemoryAccountLocker(wait time.Duration) *InMemoryAccountLocker {
	if wait <= 0 {
		wait = 3 * time.Second
	}
	return &InMemoryAccountLocker{locks: map[string]*keyLock{}, wait: wait}
}

func (l *InMemoryAccountLocker) Lock(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case kl.ch <- struct{}{}:
	case <-timer.C:
		l.release(key, kl)
		observability.RecordAccountLockEvent(ctx, "memory", "timeout")
		return nil, ErrLockTimeout
	case <-ctx.Done():
		l.release(key, kl)
		observability.RecordAccountLockEvent(ctx, "memory", "cancelled")
		return nil, ctx.Err()
	}
	observability.RecordAccountLockEvent(ctx, "memory", "acquired")
	observability.RecordAccountLockWait(ctx, "memory", time.Since(start))

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

func (l *InMemoryAccountLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
