// Package lock serialises work on a shared key, such as all reorders of one
// project, either inside one process or across replicas through Redis.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotObtained is returned when the key stayed held for the whole wait.
var ErrNotObtained = errors.New("lock: not obtained")

type Locker interface {
	// Obtain blocks until key is held, wait elapses or ctx is done. ttl bounds
	// how long a crashed holder can keep the key.
	Obtain(ctx context.Context, key string, ttl, wait time.Duration) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}
