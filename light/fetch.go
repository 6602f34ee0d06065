package light

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

// FetchFunc fetches the native block at one height.
type FetchFunc[B any] func(ctx context.Context, height uint64) (B, error)

// FetchConcurrently fetches the supporting blocks and the target block in
// parallel, bounded by the runtime's in-flight limit. The first failure cancels
// the remaining fetches and fails the batch. Results keep the order of heights.
func FetchConcurrently[B any](ctx context.Context, rt *core.Runtime, heights []uint64, target uint64, fetch FetchFunc[B]) (core.Verified[B], error) {
	supporting := make([]B, len(heights))
	var targetBlock B

	eg, ctx := errgroup.WithContext(ctx)
	for i, h := range heights {
		i, h := i, h
		eg.Go(func() error {
			return rt.Do(ctx, func(ctx context.Context) error {
				b, err := fetch(ctx, h)
				if err != nil {
					return err
				}
				supporting[i] = b
				return nil
			})
		})
	}
	eg.Go(func() error {
		return rt.Do(ctx, func(ctx context.Context) error {
			b, err := fetch(ctx, target)
			if err != nil {
				return err
			}
			targetBlock = b
			return nil
		})
	})
	if err := eg.Wait(); err != nil {
		return core.Verified[B]{}, err
	}
	return core.Verified[B]{Target: targetBlock, Supporting: supporting}, nil
}
