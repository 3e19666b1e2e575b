package collect

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEachBatched calls fn for every index in [0, n), batchSize indices at a
// time with at most concurrency calls in flight. fn reports failures itself;
// the only error returned is the context's, which stops further batches.
func forEachBatched(ctx context.Context, n, batchSize, concurrency int, fn func(ctx context.Context, i int)) error {
	for start := 0; start < n; start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, n)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i := start; i < end; i++ {
			g.Go(func() error {
				fn(gctx, i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return ctx.Err()
}
