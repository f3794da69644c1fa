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

func TestBookKey(t *testing.T) {
	assert.Equal(t, "book:0", BookKey(0))
	assert.Equal(t, "book:42", BookKey(42))
	assert.Equal(t, "book:18446744073709551615", BookKey(^uint64(0)))
}

func TestMemoryLocker_Exclusive(t *testing.T) {
	var (
		l       MemoryLocker
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(context.Background(), "book:1")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Empty(t, l.locks)
}

func TestMemoryLocker_IndependentKeys(t *testing.T) {
	l := NewMemoryLocker()
	r1, err := l.Lock(context.Background(), "book:1")
	require.NoError(t, err)
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := l.Lock(ctx, "book:2")
	require.NoError(t, err)
	r2()
}

func TestMemoryLocker_ContextTimeout(t *testing.T) {
	l := NewMemoryLocker()
	release, err := l.Lock(context.Background(), "book:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "book:1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()
	release() // second call is a no-op

	again, err := l.Lock(context.Background(), "book:1")
	require.NoError(t, err)
	again()
}
