// Package lock provides the non-blocking lock that keeps generation passes
// from overlapping, either inside one process or across processes via Redis.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked is returned by TryLock when the lock is held by someone else.
var ErrLocked = errors.New("lock is held")

// Locker acquires a lock without waiting. On success the returned release
// func must be called exactly once; it is safe to defer.
type Locker interface {
	TryLock(ctx context.Context) (release func(), err error)
}

// Memory is a process-wide Locker.
type Memory struct {
	mu sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) TryLock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !m.mu.TryLock() {
		return nil, ErrLocked
	}
	var once sync.Once
	return func() { once.Do(m.mu.Unlock) }, nil
}
