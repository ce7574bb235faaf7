package quantization

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minParallelRows is the row count below which batch work stays on the
// calling goroutine.
const minParallelRows = 1024

// parallelRows splits [0, n) into contiguous ranges and runs fn on each.
// Ranges never overlap, so fn may write to disjoint parts of shared output.
func parallelRows(ctx context.Context, n, workers int, fn func(start, end int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || n < minParallelRows {
		return fn(0, n)
	}

	chunk := (n + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(start, end)
		})
	}

	return g.Wait()
}
