package monitor_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/monitor"
)

const testChainID = "ibc0"

type notification struct {
	batch *core.EventBatch
	err   error
}

// chanSubscription replays notifications written to ch. Closing ch ends the subscription.
type chanSubscription struct {
	ch     chan notification
	closed atomic.Int32
}

func newChanSubscription() *chanSubscription {
	return &chanSubscription{ch: make(chan notification)}
}

func (s *chanSubscription) Next(ctx context.Context) (*core.EventBatch, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case n, ok := <-s.ch:
		if !ok {
			return nil, monitor.ErrSubscriptionClosed
		}
		return n.batch, n.err
	}
}

func (s *chanSubscription) Close() error {
	s.closed.Add(1)
	return nil
}

func batchAt(h uint64) *core.EventBatch {
	height := clienttypes.NewHeight(0, h)
	return &core.EventBatch{
		ChainID: testChainID,
		Height:  height,
		Events:  []core.IBCEvent{&core.EventNewBlock{Height: height}},
	}
}

func drain(out <-chan *core.EventBatchOrError) []*core.EventBatchOrError {
	var items []*core.EventBatchOrError
	for item := range out {
		items = append(items, item)
	}
	return items
}

func TestShutdownBeforeAnyNotification(t *testing.T) {
	defer leaktest.Check(t)()

	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()

	sub := newChanSubscription()
	h, out := monitor.Start(rt, testChainID, sub)

	require.NoError(t, h.Shutdown(context.Background()))
	require.Empty(t, drain(out))
	require.Equal(t, int32(1), sub.closed.Load())

	select {
	case <-h.Done():
	default:
		t.Fatal("monitor is still running after shutdown")
	}
}

func TestPublishInOrder(t *testing.T) {
	defer leaktest.Check(t)()

	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()

	sub := newChanSubscription()
	h, out := monitor.Start(rt, testChainID, sub, monitor.WithBufferSize(0))

	for i := uint64(1); i <= 3; i++ {
		sub.ch <- notification{batch: batchAt(i)}
		item := <-out
		require.NoError(t, item.Error)
		require.Equal(t, clienttypes.NewHeight(0, i), item.Batch.Height)
	}

	require.NoError(t, h.Shutdown(context.Background()))
	require.Empty(t, drain(out))
	require.Equal(t, int32(1), sub.closed.Load())
}

func TestContinueOnError(t *testing.T) {
	defer leaktest.Check(t)()

	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()

	sub := newChanSubscription()
	h, out := monitor.Start(rt, testChainID, sub, monitor.WithBufferSize(0))

	reset := errors.New("connection reset")
	sub.ch <- notification{err: errorsmod.Wrap(coreerrors.ErrNetwork, reset.Error())}
	item := <-out
	require.ErrorIs(t, item.Error, coreerrors.ErrMonitor)
	require.ErrorIs(t, item.Error, coreerrors.ErrNetwork)
	require.True(t, coreerrors.IsRetryable(item.Error))
	require.Nil(t, item.Batch)

	sub.ch <- notification{batch: batchAt(5)}
	item = <-out
	require.NoError(t, item.Error)
	require.Equal(t, clienttypes.NewHeight(0, 5), item.Batch.Height)

	require.NoError(t, h.Shutdown(context.Background()))
	require.Equal(t, int32(1), sub.closed.Load())
}

func TestStopOnError(t *testing.T) {
	defer leaktest.Check(t)()

	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()

	sub := newChanSubscription()
	h, out := monitor.Start(rt, testChainID, sub, monitor.WithErrorPolicy(monitor.StopOnError))

	sub.ch <- notification{err: errors.New("connection reset")}
	items := drain(out)
	require.Len(t, items, 1)
	require.ErrorIs(t, items[0].Error, coreerrors.ErrMonitor)

	<-h.Done()
	require.Equal(t, int32(1), sub.closed.Load())
	require.NoError(t, h.Shutdown(context.Background()))
}

func TestSubscriptionClosed(t *testing.T) {
	defer leaktest.Check(t)()

	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()

	sub := newChanSubscription()
	h, out := monitor.Start(rt, testChainID, sub)

	close(sub.ch)
	items := drain(out)
	require.Len(t, items, 1)
	require.ErrorIs(t, items[0].Error, coreerrors.ErrMonitor)
	require.ErrorIs(t, items[0].Error, monitor.ErrSubscriptionClosed)
	require.NotErrorIs(t, items[0].Error, coreerrors.ErrNetwork)
	require.False(t, coreerrors.IsRetryable(items[0].Error))

	<-h.Done()
	require.Equal(t, int32(1), sub.closed.Load())
}

func TestShutdownWithExpiredContext(t *testing.T) {
	defer leaktest.Check(t)()

	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()

	sub := newChanSubscription()
	h, out := monitor.Start(rt, testChainID, sub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Shutdown(ctx); err != nil {
		require.ErrorIs(t, err, coreerrors.ErrMonitor)
	}

	require.Empty(t, drain(out))
	require.Equal(t, int32(1), sub.closed.Load())
}

func TestRuntimeCloseStopsMonitor(t *testing.T) {
	defer leaktest.Check(t)()

	rt := core.NewRuntime(context.Background(), 0)
	sub := newChanSubscription()
	h, out := monitor.Start(rt, testChainID, sub)

	require.NoError(t, rt.Close())
	require.Empty(t, drain(out))
	<-h.Done()
	require.Equal(t, int32(1), sub.closed.Load())
}

func TestShutdownTwice(t *testing.T) {
	defer leaktest.Check(t)()

	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()

	sub := newChanSubscription()
	h, _ := monitor.Start(rt, testChainID, sub)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))
	require.NoError(t, h.Shutdown(ctx))
	require.Equal(t, int32(1), sub.closed.Load())
}

func TestSlotReplace(t *testing.T) {
	defer leaktest.Check(t)()

	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()

	var slot monitor.Slot
	first := newChanSubscription()
	h1, out1 := monitor.Start(rt, testChainID, first)
	require.NoError(t, slot.Replace(context.Background(), h1))
	require.Same(t, h1, slot.Current())

	second := newChanSubscription()
	h2, _ := monitor.Start(rt, testChainID, second)
	require.NoError(t, slot.Replace(context.Background(), h2))
	require.Empty(t, drain(out1))
	require.Equal(t, int32(1), first.closed.Load())
	require.Equal(t, int32(0), second.closed.Load())

	require.NoError(t, slot.Shutdown(context.Background()))
	require.Nil(t, slot.Current())
	require.Equal(t, int32(1), second.closed.Load())
}
