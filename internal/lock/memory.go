package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is a Locker for a single process. ttl is ignored since a
// holder cannot outlive the process.
type MemoryLocker struct {
	mu   sync.Mutex
	keys map[string]chan struct{}
}

var _ Locker = (*MemoryLocker)(nil)

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{keys: make(map[string]chan struct{})}
}

func (l *MemoryLocker) Obtain(ctx context.Context, key string, _, wait time.Duration) (Lease, error) {
	l.mu.Lock()
	sem, ok := l.keys[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.keys[key] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return &memoryLease{sem: sem}, nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return &memoryLease{sem: sem}, nil
	case <-timer.C:
		return nil, ErrNotObtained
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memoryLease struct {
	once sync.Once
	sem  chan struct{}
}

func (l *memoryLease) Release(context.Context) error {
	l.once.Do(func() { <-l.sem })
	return nil
}
