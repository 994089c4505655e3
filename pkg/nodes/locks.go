package nodes

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Unlock releases a lock. Calling it more than once is a no-op.
type Unlock func()

// Locks is a set of named mutexes whose acquisition honors context
// cancellation. The zero value is not usable; use NewLocks.
type Locks struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocks returns an empty lock set.
func NewLocks() *Locks {
	return &Locks{held: make(map[string]chan struct{})}
}

// Acquire blocks until key is free, ctx is done, or timeout passes. A
// timeout of zero waits as long as ctx allows.
func (l *Locks) Acquire(ctx context.Context, key string, timeout time.Duration) (Unlock, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			return l.releaser(key, done), nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, fmt.Errorf("could not acquire lock '%s': %w", key, ctx.Err())
		}
	}
}

func (l *Locks) releaser(key string, done chan struct{}) Unlock {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[key] == done {
				delete(l.held, key)
			}
			close(done)
		})
	}
}

// IsHeld reports whether key is currently locked.
func (l *Locks) IsHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, held := l.held[key]
	return held
}
