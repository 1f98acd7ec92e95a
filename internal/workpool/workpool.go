// Package workpool is the single worker-pool implementation used by
// every stage in the pipeline that fans a slice of inputs out over a
// fixed set of goroutines and merges the results back in input order
// (spec.md section 5's concurrency model, grounded on the teacher's
// internal/annotate.ParallelAnnotate / OrderedCollect pair). Unlike the
// teacher's hand-written channel-and-map version, this one is built on
// sourcegraph/conc's pool.ResultPool, which already does the ordered
// collection and panic-safety the teacher's OrderedCollect re-derives
// by hand.
package workpool

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Map runs fn(items[i]) for every i across workers goroutines (0 means
// runtime.NumCPU()) and returns outputs in input order: outputs[i] is
// always fn(items[i]), regardless of completion order. This is the
// deterministic-replay-by-index concurrency model every component
// (Annotator, Join Engine, Cross-Filter Bank) is built on.
func Map[I, O any](items []I, workers int, fn func(i int, item I) O) []O {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if len(items) == 0 {
		return nil
	}

	p := pool.NewWithResults[indexed[O]]().WithMaxGoroutines(workers)
	for i, item := range items {
		i, item := i, item
		p.Go(func() indexed[O] {
			return indexed[O]{idx: i, val: fn(i, item)}
		})
	}
	results := p.Wait()

	out := make([]O, len(items))
	for _, r := range results {
		out[r.idx] = r.val
	}
	return out
}

// MapErr is Map for functions that can fail. It always returns outputs
// of the same length as items; a nil error at position i means
// outputs[i] is valid. Errs collects every non-nil error, in no
// particular order — callers needing the first error by index should
// scan outputs and errs together.
func MapErr[I, O any](items []I, workers int, fn func(i int, item I) (O, error)) ([]O, []error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if len(items) == 0 {
		return nil, nil
	}

	p := pool.NewWithResults[indexed[result[O]]]().WithMaxGoroutines(workers)
	for i, item := range items {
		i, item := i, item
		p.Go(func() indexed[result[O]] {
			v, err := fn(i, item)
			return indexed[result[O]]{idx: i, val: result[O]{v: v, err: err}}
		})
	}
	results := p.Wait()

	out := make([]O, len(items))
	var errs []error
	for _, r := range results {
		out[r.idx] = r.val.v
		if r.val.err != nil {
			errs = append(errs, r.val.err)
		}
	}
	return out, errs
}

type indexed[T any] struct {
	idx int
	val T
}

type result[T any] struct {
	v   T
	err error
}
