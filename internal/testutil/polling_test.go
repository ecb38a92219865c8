package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoll(t *testing.T) {
	t.Parallel()
	calls := 0
	err := Poll(context.Background(), func() bool {
		calls++
		return calls >= 3
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestPollTimeout(t *testing.T) {
	t.Parallel()
	err := Poll(context.Background(), func() bool { return false }, 20*time.Millisecond, time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestPollContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	err := Poll(ctx, func() bool {
		cancel()
		return false
	}, 5*time.Second, time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitForStateFromGoroutine(t *testing.T) {
	t.Parallel()
	ctx, cancel := WithTimeoutContext(context.Background(), 5*time.Second)
	defer cancel()

	var counter atomic.Int64
	go func() {
		for i := 0; i < 10; i++ {
			counter.Add(1)
			time.Sleep(time.Millisecond)
		}
	}()

	v, err := WaitForState(ctx, counter.Load, func(n int64) bool { return n >= 10 }, 5*time.Second, time.Millisecond)
	require.NoError(t, err)
	require.EqualValues(t, 10, v)
}

func TestWaitForStateTimeoutReturnsZero(t *testing.T) {
	t.Parallel()
	v, err := WaitForState(context.Background(), func() string { return "pending" },
		func(s string) bool { return s == "done" }, 10*time.Millisecond, time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	require.Empty(t, v)
}
