// Package workpool runs a function over a slice with bounded concurrency and
// returns results in input order.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one item. Exactly one of Value or Err is
// meaningful.
type Result[R any] struct {
	Value R
	Err   error
}

// Workers resolves a configured worker count: n <= 0 means host parallelism.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// Map applies fn to every item with at most workers calls in flight.
// results[i] always belongs to items[i], whatever order the calls finish in.
// A failing item never stops the others; its error is kept in results[i].
// When ctx is cancelled, items not yet started get ctx.Err() and Map
// returns it after every started call has finished.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, i int, item T) (R, error)) ([]Result[R], error) {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results, nil
	}

	workers = Workers(workers)
	if workers == 1 {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				fillCancelled(results[i:], err)
				return results, err
			}
			v, err := fn(ctx, i, item)
			results[i] = Result[R]{Value: v, Err: err}
		}
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			v, err := fn(ctx, i, item)
			results[i] = Result[R]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}

func fillCancelled[R any](results []Result[R], err error) {
	for i := range results {
		results[i].Err = err
	}
}
