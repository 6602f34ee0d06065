package core_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

func TestRuntimeBoundsInFlight(t *testing.T) {
	defer leaktest.Check(t)()

	rt := core.NewRuntime(context.Background(), 2)
	defer rt.Close()

	var inFlight, peak int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			return rt.Do(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRuntimeCloseCancelsTasks(t *testing.T) {
	defer leaktest.Check(t)()

	rt := core.NewRuntime(context.Background(), 0)
	started := make(chan struct{})
	rt.Spawn(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	})
	<-started
	require.NoError(t, rt.Close())
	require.Error(t, rt.Context().Err())
}
