package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryUserLockerSerializesSameUser(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryUserLocker()

	handle, err := locker.Acquire(ctx, "alice", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		second, acquireErr := locker.Acquire(ctx, "alice", time.Minute)
		if acquireErr != nil {
			t.Errorf("second acquire: %v", acquireErr)
			close(acquired)
			return
		}
		close(acquired)
		_ = second.Unlock(ctx)
	}()

	select {
	case <-acquired:
		t.Fatalf("second acquire must block while the lock is held")
	case <-time.After(50 * time.Millisecond):
	}

	if err := handle.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second acquire should proceed after unlock")
	}
}

func TestMemoryUserLockerDistinctUsersDoNotContend(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryUserLocker()

	first, err := locker.Acquire(ctx, "alice", time.Minute)
	if err != nil {
		t.Fatalf("acquire alice: %v", err)
	}
	defer first.Unlock(ctx)

	done := make(chan error, 1)
	go func() {
		second, acquireErr := locker.Acquire(ctx, "bob", time.Minute)
		if acquireErr == nil {
			_ = second.Unlock(ctx)
		}
		done <- acquireErr
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("acquire bob: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("distinct users must not block each other")
	}
}

func TestMemoryUserLockerContextCancellation(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryUserLocker()

	handle, err := locker.Acquire(ctx, "alice", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer handle.Unlock(ctx)

	cancelCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, acquireErr := locker.Acquire(cancelCtx, "alice", time.Minute)
		done <- acquireErr
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected context cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatalf("cancelled waiter should return promptly")
	}
}

func TestMemoryUserLockerExpiredLockCanBeTaken(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryUserLocker()
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	locker.nowFn = func() time.Time { return current }

	if _, err := locker.Acquire(ctx, "alice", time.Second); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Holder never unlocked; after the TTL elapses the lock is up for grabs.
	current = current.Add(2 * time.Second)
	handle, err := locker.Acquire(ctx, "alice", time.Second)
	if err != nil {
		t.Fatalf("acquire after ttl expiry: %v", err)
	}
	_ = handle.Unlock(ctx)
}

func TestMemoryUserLockerUnlockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryUserLocker()

	handle, err := locker.Acquire(ctx, "alice", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = handle.Unlock(ctx)
		}()
	}
	wg.Wait()

	next, err := locker.Acquire(ctx, "alice", time.Minute)
	if err != nil {
		t.Fatalf("reacquire after unlock: %v", err)
	}
	_ = next.Unlock(ctx)
}
