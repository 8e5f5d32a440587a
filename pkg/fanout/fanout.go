// Package fanout runs one function over a batch of inputs with bounded
// concurrency, keeping results aligned with their inputs.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result pairs the output of one call with its error. A failed call never
// aborts the rest of the batch.
type Result[R any] struct {
	Value R
	Err   error
}

// Map calls fn for every element of in, running at most limit calls at a
// time (limit <= 0 means unbounded). The returned slice has the same length
// and order as in.
//
// Errors are collected per item rather than cancelling siblings, so Map
// itself cannot fail. Items not yet started when ctx is cancelled receive
// ctx.Err().
func Map[T, R any](ctx context.Context, in []T, limit int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	out := make([]Result[R], len(in))
	if len(in) == 0 {
		return out
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range in {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i] = Result[R]{Err: err}
				return nil
			}
			v, err := fn(ctx, item)
			out[i] = Result[R]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
