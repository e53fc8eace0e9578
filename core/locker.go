package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultUserLockTTL = 30 * time.Second

// MemoryUserLocker serializes per-user writes inside a single process. Each
// user id maps to one mutex; locks carry a TTL so a holder that never unlocks
// cannot wedge the user forever.
type MemoryUserLocker struct {
	mu    sync.Mutex
	locks map[string]*userLockEntry
	nowFn func() time.Time
}

type userLockEntry struct {
	gate  chan struct{}
	until time.Time
}

func NewMemoryUserLocker() *MemoryUserLocker {
	return &MemoryUserLocker{
		locks: make(map[string]*userLockEntry),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryUserLocker) Acquire(ctx context.Context, userID string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: user locker is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("core: user id is required for lock acquisition")
	}
	if ttl <= 0 {
		ttl = defaultUserLockTTL
	}

	for {
		l.mu.Lock()
		now := l.nowFn()
		entry, held := l.locks[userID]
		if !held || now.After(entry.until) {
			gate := make(chan struct{})
			l.locks[userID] = &userLockEntry{gate: gate, until: now.Add(ttl)}
			l.mu.Unlock()
			return &memoryLockHandle{locker: l, userID: userID, gate: gate}, nil
		}
		wait := entry.gate
		deadline := entry.until
		l.mu.Unlock()

		expiry := time.NewTimer(deadline.Sub(now))
		select {
		case <-ctx.Done():
			expiry.Stop()
			return nil, ctx.Err()
		case <-wait:
			expiry.Stop()
		case <-expiry.C:
		}
	}
}

type memoryLockHandle struct {
	locker *MemoryUserLocker
	userID string
	gate   chan struct{}
	once   sync.Once
}

func (h *memoryLockHandle) Unlock(_ context.Context) error {
	if h == nil || h.locker == nil {
		return nil
	}
	h.once.Do(func() {
		h.locker.mu.Lock()
		if entry, ok := h.locker.locks[h.userID]; ok && entry.gate == h.gate {
			delete(h.locker.locks, h.userID)
		}
		h.locker.mu.Unlock()
		close(h.gate)
	})
	return nil
}
