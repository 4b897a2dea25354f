package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, ItemLockKey(1))
			require.NoError(t, err)
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
	require.Empty(t, l.slots)
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(context.Background(), ItemLockKey(1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, ItemLockKey(1))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op

	release, err = l.Acquire(context.Background(), ItemLockKey(1))
	require.NoError(t, err)
	release()
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	l := NewLocalLocker()
	r1, err := l.Acquire(context.Background(), ItemLockKey(1))
	require.NoError(t, err)
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := l.Acquire(ctx, OrderLockKey(1))
	require.NoError(t, err)
	r2()
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*LocalLocker)(nil)
)

func TestLocker_ReleaseThroughInterface(t *testing.T) {
	var l Locker = NewLocalLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, ItemLockKey(7))
	require.NoError(t, err)
	release()

	// released key can be taken again immediately
	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	release, err = l.Acquire(ctx, ItemLockKey(7))
	require.NoError(t, err)
	release()
}
