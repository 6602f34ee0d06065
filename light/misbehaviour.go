package light

import (
	"bytes"
	"context"

	errorsmod "cosmossdk.io/errors"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

// CheckMisbehaviour compares the header carried by an update event with the
// canonical header at the same height. It returns nil evidence when they agree
// or when the event carries no header, and ErrMisbehaviourUnsupported when the
// adapter cannot hash headers.
func (c *Client[B]) CheckMisbehaviour(ctx context.Context, ev *core.EventUpdateClient, cs *wasm.ClientState) (*core.MisbehaviourEvidence, error) {
	src, ok := c.adapter.(MisbehaviourSource[B])
	if !ok {
		return nil, errorsmod.Wrapf(coreerrors.ErrMisbehaviourUnsupported, "chain %s", c.chainID)
	}
	if ev == nil || ev.Header == nil {
		return nil, nil
	}
	if _, _, err := c.registry.Decode(cs); err != nil {
		return nil, err
	}

	submitted, err := src.HeaderHash(ev.Header.Data)
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "submitted header at %s: %v", ev.Header.Height, err)
	}
	block, err := c.Fetch(ctx, ev.Header.Height)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(submitted, src.BlockHash(block)) {
		return nil, nil
	}

	canonical, err := c.WrapHeader(block)
	if err != nil {
		return nil, err
	}
	c.logger().WarnContext(ctx, "conflicting header detected",
		"client_id", ev.ClientID, "height", ev.Header.Height.String())
	return &core.MisbehaviourEvidence{
		ClientID:    ev.ClientID,
		Height:      ev.Header.Height,
		Canonical:   canonical,
		Conflicting: ev.Header,
	}, nil
}
