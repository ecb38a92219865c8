// Package testutil holds helpers for tests that wait on another goroutine,
// such as a processor loop publishing runtime snapshots.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a wait runs past its threshold.
var ErrTimeout = errors.New("timeout")

// Poll checks condition every interval until it holds, the timeout passes
// or ctx ends.
func Poll(ctx context.Context, condition func() bool, timeout time.Duration, interval time.Duration) error {
	_, err := WaitForState(ctx, condition, func(ok bool) bool { return ok }, timeout, interval)
	return err
}

// WaitForState calls getter every interval until predicate accepts its
// result, and returns that result.
//
//	snap, err := WaitForState(ctx, shared.Runtime,
//		func(r state.RuntimeData) bool { return r.State == state.Online },
//		5*time.Second,
//		5*time.Millisecond)
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout time.Duration, interval time.Duration) (T, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		v := getter()
		if predicate(v) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-deadline.C:
			var zero T
			return zero, fmt.Errorf("%w waiting for %T after %v", ErrTimeout, zero, timeout)
		case <-ticker.C:
		}
	}
}

// WithTimeoutContext bounds a whole test.
func WithTimeoutContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
