// Package async holds small concurrency helpers shared by the auth client and
// the gateway.
package async

import (
	"context"
	"errors"
	"time"
)

// ErrTimedOut is returned by WithTimeout when the operation did not settle
// within the allowed duration.
var ErrTimedOut = errors.New("operation timed out")

type result[T any] struct {
	value T
	err   error
}

// WithTimeout runs op and races it against a timer. If the timer wins, the
// zero value and ErrTimedOut are returned immediately; op keeps running in the
// background with a cancelled context so a guaranteed local cleanup path is
// never blocked on a slow remote call.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithTimeout(ctx, d)

	done := make(chan result[T], 1)
	go func() {
		defer cancel()
		v, err := op(opCtx)
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-opCtx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, ErrTimedOut
	}
}
