package mosaic

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"skytiler/pyramid"
)

// forEach runs fn for every address on at most workers goroutines. The
// first error cancels the remaining work and is returned.
func forEach(ctx context.Context, workers int, addrs []pyramid.Address, fn func(context.Context, pyramid.Address) error) error {
	if len(addrs) == 0 {
		return ctx.Err()
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(addrs) {
		workers = len(addrs)
	}

	slots := make(chan struct{}, workers)
	g, gctx := errgroup.WithContext(ctx)
loop:
	for _, a := range addrs {
		select {
		case slots <- struct{}{}:
		case <-gctx.Done():
			break loop
		}
		g.Go(func() error {
			defer func() { <-slots }()
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, a)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
