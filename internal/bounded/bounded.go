// Package bounded races remote operations against a deadline.
//
// A call that has not settled by its deadline returns a Timeout AppError and its
// eventual result is dropped. No retries happen here.
package bounded

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
)

type result[T any] struct {
	val T
	err error
}

// Call runs op with a context bounded by deadline and waits at most that long.
// op receives a context that is canceled once the deadline passes, but Call does not
// rely on op honoring it.
//
// Errors are normalized: AppErrors pass through, context deadline errors become
// Timeout, cancellation of the caller's ctx becomes Canceled, and everything else
// is wrapped as Transport.
func Call[T any](ctx context.Context, name string, deadline time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if deadline <= 0 {
		return zero, apperrors.Internalf("%s: non-positive deadline %s", name, deadline)
	}

	opCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	// Buffered so an abandoned op can always deliver and exit.
	ch := make(chan result[T], 1)
	go func() {
		v, err := op(opCtx)
		ch <- result[T]{val: v, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return zero, normalize(ctx, name, deadline, r.err)
		}
		return r.val, nil
	case <-timer.C:
		return zero, apperrors.Timeoutf("%s exceeded %s", name, deadline)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, apperrors.Wrapf(ctx.Err(), apperrors.ErrCodeTimeout, "%s: caller deadline exceeded", name)
		}
		return zero, apperrors.Wrapf(ctx.Err(), apperrors.ErrCodeCanceled, "%s canceled", name)
	}
}

// Do is Call for operations that only return an error.
func Do(ctx context.Context, name string, deadline time.Duration, op func(context.Context) error) error {
	_, err := Call(ctx, name, deadline, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func normalize(ctx context.Context, name string, deadline time.Duration, err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrapf(err, apperrors.ErrCodeTimeout, "%s exceeded %s", name, deadline)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return apperrors.Wrapf(err, apperrors.ErrCodeCanceled, "%s canceled", name)
	default:
		return apperrors.Transport(err, name+" failed")
	}
}
