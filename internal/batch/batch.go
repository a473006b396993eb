// Package batch runs uniform work over a slice with bounded
// concurrency, reporting a per-item outcome instead of failing the
// whole run.
package batch

import (
	"context"
	"sync"
)

// Result is the outcome for one input item, at the same index.
type Result[T any] struct {
	Value T
	Err   error
}

// Map applies fn to every item with at most limit invocations running
// concurrently. Results are positional: Results[i] corresponds to
// items[i]. A limit below 1 is treated as 1. Map returns when all
// items have been processed; a canceled context surfaces as per-item
// errors from fn, not as an early return.
func Map[I, O any](ctx context.Context, items []I, limit int, fn func(ctx context.Context, item I) (O, error)) []Result[O] {
	if limit < 1 {
		limit = 1
	}

	results := make([]Result[O], len(items))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item I) {
			defer wg.Done()
			defer func() { <-sem }()
			value, err := fn(ctx, item)
			results[i] = Result[O]{Value: value, Err: err}
		}(i, item)
	}

	wg.Wait()
	return results
}
