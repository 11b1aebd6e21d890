package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// InMemoryLock implements the lock contract inside one process. Used when
// Redis is disabled and in tests. It does not coordinate across replicas.
type InMemoryLock struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
}

// NewInMemoryLock creates an empty InMemoryLock
func NewInMemoryLock() *InMemoryLock {
	return &InMemoryLock{locks: make(map[string]lockEntry), now: time.Now}
}

// Acquire takes the lock unless a live holder exists. Expired entries are
// overwritten.
func (l *InMemoryLock) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, exists := l.locks[key]; exists && now.Before(e.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.locks[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Release frees the lock if token still owns it
func (l *InMemoryLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, exists := l.locks[key]; exists && e.token == token {
		delete(l.locks, key)
	}
	return nil
}

// Held reports whether key is currently locked
func (l *InMemoryLock) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, exists := l.locks[key]
	return exists && l.now().Before(e.expiresAt)
}
