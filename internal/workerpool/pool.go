// Package workerpool runs independent tasks on a bounded number of goroutines
// and hands their results back to the caller as they complete.
package workerpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of running work on a single input.
type Result[T, R any] struct {
	Input T
	Value R
	Err   error
}

// Stream runs work for every input with at most size calls in flight and
// calls handle for each result, in completion order, on the calling goroutine.
//
// When handle returns an error no further inputs are started, results still
// in flight are discarded, and Stream returns that error once every started
// call has returned. Cancelling ctx has the same effect and returns ctx.Err().
func Stream[T, R any](
	ctx context.Context,
	size int,
	inputs []T,
	work func(ctx context.Context, input T) (R, error),
	handle func(Result[T, R]) error,
) error {
	if size < 1 {
		return fmt.Errorf("pool size must be positive, got %d", size)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Result[T, R])

	var g errgroup.Group
	g.SetLimit(size)

	go func() {
		defer close(results)

		for _, input := range inputs {
			input := input
			if runCtx.Err() != nil {
				break
			}

			g.Go(func() error {
				if runCtx.Err() != nil {
					return nil
				}
				value, err := work(runCtx, input)
				select {
				case results <- Result[T, R]{Input: input, Value: value, Err: err}:
				case <-runCtx.Done():
				}
				return nil
			})
		}

		_ = g.Wait()
	}()

	var handleErr error
	for res := range results {
		if handleErr != nil {
			continue
		}
		if err := handle(res); err != nil {
			handleErr = err
			cancel()
		}
	}

	if handleErr != nil {
		return handleErr
	}

	return ctx.Err()
}

// Collect runs work for every input and returns all values in completion
// order. The first failed input aborts the batch.
func Collect[T, R any](
	ctx context.Context,
	size int,
	inputs []T,
	work func(ctx context.Context, input T) (R, error),
) ([]R, error) {
	values := make([]R, 0, len(inputs))

	err := Stream(ctx, size, inputs, work, func(res Result[T, R]) error {
		if res.Err != nil {
			return res.Err
		}
		values = append(values, res.Value)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}
