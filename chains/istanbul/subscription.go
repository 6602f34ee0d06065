package istanbul

import (
	"context"
	"errors"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/monitor"
)

// headSubscription turns newHeads notifications into one batch per block.
// Heights skipped between two notifications are filled in from logs.
type headSubscription struct {
	chain   *Chain
	sub     ethereum.Subscription
	heads   chan *types.Header
	last    uint64
	pending []uint64
}

var _ monitor.Subscription = (*headSubscription)(nil)

// newHeadSubscription subscribes to new heads, or polls when configured to or
// when the transport cannot push notifications.
func newHeadSubscription(ctx context.Context, c *Chain) (monitor.Subscription, error) {
	from, err := c.QueryLatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	poll := func() monitor.Subscription {
		return monitor.NewPollSubscription(c.ID(), &heightSource{chain: c}, c.config.averageBlockTime(), from)
	}
	if c.config.EventSource == EventSourcePoll {
		return poll(), nil
	}

	heads := make(chan *types.Header, 16)
	sub, err := c.eth.SubscribeNewHead(ctx, heads)
	if errors.Is(err, rpc.ErrNotificationsUnsupported) {
		GetChainLogger().WithChainID(c.ID()).Warn("rpc transport cannot push new heads, falling back to polling", "rpc_addr", c.config.RPCAddr)
		return poll(), nil
	} else if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "subscribe new heads: %v", err)
	}
	return &headSubscription{
		chain: c,
		sub:   sub,
		heads: heads,
		last:  from.RevisionHeight,
	}, nil
}

func (s *headSubscription) Next(ctx context.Context) (*core.EventBatch, error) {
	for len(s.pending) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err, ok := <-s.sub.Err():
			if !ok || err == nil {
				return nil, fmt.Errorf("new heads of %s: %w", s.chain.ID(), monitor.ErrSubscriptionClosed)
			}
			return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "new heads of %s: %v", s.chain.ID(), err)
		case head := <-s.heads:
			if head == nil || head.Number == nil {
				continue
			}
			height := head.Number.Uint64()
			for h := s.last + 1; h <= height; h++ {
				s.pending = append(s.pending, h)
			}
		}
	}

	height := clienttypes.NewHeight(s.chain.config.Revision, s.pending[0])
	events, err := s.chain.blockEvents(ctx, height)
	if err != nil {
		return nil, err
	}
	s.pending = s.pending[1:]
	s.last = height.RevisionHeight
	return &core.EventBatch{
		ChainID: s.chain.ID(),
		Height:  height,
		Events:  append([]core.IBCEvent{&core.EventNewBlock{Height: height}}, events...),
	}, nil
}

func (s *headSubscription) Close() error {
	s.sub.Unsubscribe()
	return nil
}

type heightSource struct {
	chain *Chain
}

func (s *heightSource) LatestHeight(ctx context.Context) (clienttypes.Height, error) {
	return s.chain.QueryLatestHeight(ctx)
}

func (s *heightSource) EventsAt(ctx context.Context, height clienttypes.Height) ([]core.IBCEvent, error) {
	return s.chain.blockEvents(ctx, height)
}
