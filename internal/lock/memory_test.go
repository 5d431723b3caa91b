package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_TimesOutWhileHeld(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	lease, err := l.Obtain(ctx, "project:1", time.Second, time.Second)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, "project:1", time.Second, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrNotObtained)

	// other keys are independent
	other, err := l.Obtain(ctx, "project:2", time.Second, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	again, err := l.Obtain(ctx, "project:1", time.Second, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestMemoryLocker_ReleaseIsIdempotent(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	lease, err := l.Obtain(ctx, "k", time.Second, time.Second)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
	require.NoError(t, lease.Release(ctx))

	lease, err = l.Obtain(ctx, "k", time.Second, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}

func TestMemoryLocker_ContextCancel(t *testing.T) {
	l := NewMemoryLocker()
	lease, err := l.Obtain(context.Background(), "k", time.Second, time.Second)
	require.NoError(t, err)
	defer lease.Release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Obtain(ctx, "k", time.Second, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := l.Obtain(ctx, "k", time.Second, 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = lease.Release(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}
