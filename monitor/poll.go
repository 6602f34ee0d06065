package monitor

import (
	"context"
	"time"

	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

// HeightSource is what a polling subscription needs from a chain.
type HeightSource interface {
	LatestHeight(ctx context.Context) (clienttypes.Height, error)
	// EventsAt returns the IBC events emitted in the block at height
	EventsAt(ctx context.Context, height clienttypes.Height) ([]core.IBCEvent, error)
}

// PollSubscription produces one batch per block by polling the latest height
// on every tick.
type PollSubscription struct {
	chainID     string
	src         HeightSource
	ticker      *time.Ticker
	lastScanned clienttypes.Height
	latest      clienttypes.Height
}

var _ Subscription = (*PollSubscription)(nil)

// NewPollSubscription starts polling after height from.
func NewPollSubscription(chainID string, src HeightSource, interval time.Duration, from clienttypes.Height) *PollSubscription {
	return &PollSubscription{
		chainID:     chainID,
		src:         src,
		ticker:      time.NewTicker(interval),
		lastScanned: from,
		latest:      from,
	}
}

func (p *PollSubscription) Next(ctx context.Context) (*core.EventBatch, error) {
	for p.latest.LTE(p.lastScanned) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.ticker.C:
		}
		latest, err := p.src.LatestHeight(ctx)
		if err != nil {
			return nil, err
		}
		p.latest = latest
	}

	height := clienttypes.NewHeight(p.latest.RevisionNumber, p.lastScanned.RevisionHeight+1)
	if p.lastScanned.RevisionNumber != p.latest.RevisionNumber {
		// the chain moved to a new revision; resume from its tip
		height = p.latest
	}
	events, err := p.src.EventsAt(ctx, height)
	if err != nil {
		return nil, err
	}
	p.lastScanned = height
	return &core.EventBatch{
		ChainID: p.chainID,
		Height:  height,
		Events:  append([]core.IBCEvent{&core.EventNewBlock{Height: height}}, events...),
	}, nil
}

func (p *PollSubscription) Close() error {
	p.ticker.Stop()
	return nil
}
