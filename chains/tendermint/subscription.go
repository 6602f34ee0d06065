package tendermint

import (
	"context"
	"fmt"
	"sync/atomic"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	tmtypes "github.com/cometbft/cometbft/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/monitor"
)

var subscriberSeq atomic.Uint64

// blockSubscription turns NewBlock notifications into one batch per block.
// Heights skipped by the websocket are filled in from block results.
type blockSubscription struct {
	chain      *Chain
	subscriber string
	events     <-chan coretypes.ResultEvent
	last       uint64
	pending    []uint64
}

var _ monitor.Subscription = (*blockSubscription)(nil)

func newBlockSubscription(ctx context.Context, c *Chain) (monitor.Subscription, error) {
	from, err := c.QueryLatestHeight(ctx)
	if err != nil {
		return nil, err
	}
	if c.config.EventSource == EventSourcePoll {
		return monitor.NewPollSubscription(c.ID(), &heightSource{chain: c}, c.config.averageBlockTime(), from), nil
	}

	if !c.client.IsRunning() {
		if err := c.client.Start(); err != nil {
			return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "websocket: %v", err)
		}
	}
	subscriber := fmt.Sprintf("wasm-relayer-%s-%d", c.ID(), subscriberSeq.Add(1))
	events, err := c.client.Subscribe(ctx, subscriber, tmtypes.EventQueryNewBlock.String())
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "subscribe: %v", err)
	}
	return &blockSubscription{
		chain:      c,
		subscriber: subscriber,
		events:     events,
		last:       from.RevisionHeight,
	}, nil
}

func (s *blockSubscription) Next(ctx context.Context) (*core.EventBatch, error) {
	for len(s.pending) == 0 {
		var ev coretypes.ResultEvent
		var ok bool
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok = <-s.events:
			if !ok {
				return nil, fmt.Errorf("%s: %w", s.subscriber, monitor.ErrSubscriptionClosed)
			}
		}
		data, ok := ev.Data.(tmtypes.EventDataNewBlock)
		if !ok || data.Block == nil {
			continue
		}
		height := uint64(data.Block.Height)
		if height <= s.last {
			continue
		}
		for h := s.last + 1; h <= height; h++ {
			s.pending = append(s.pending, h)
		}
	}

	height := clienttypes.NewHeight(s.chain.revision, s.pending[0])
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

func (s *blockSubscription) Close() error {
	if err := s.chain.client.UnsubscribeAll(context.Background(), s.subscriber); err != nil {
		return errorsmod.Wrapf(coreerrors.ErrNetwork, "unsubscribe %s: %v", s.subscriber, err)
	}
	return nil
}

// blockEvents returns the IBC events of the successful transactions of a
// block followed by the events emitted while finalizing it.
func (c *Chain) blockEvents(ctx context.Context, height clienttypes.Height) ([]core.IBCEvent, error) {
	h, err := core.SignedHeight(height.RevisionHeight)
	if err != nil {
		return nil, err
	}
	res, err := c.client.BlockResults(ctx, &h)
	if err != nil {
		return nil, rpcError(err, "block results at %d", h)
	}
	var abciEvents []abci.Event
	for _, tx := range res.TxsResults {
		if tx == nil || tx.IsErr() {
			continue
		}
		abciEvents = append(abciEvents, tx.Events...)
	}
	abciEvents = append(abciEvents, res.FinalizeBlockEvents...)
	events, err := parseEvents(abciEvents)
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "block %d: %v", h, err)
	}
	return events, nil
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
