package light

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/internal/telemetry"
	"github.com/hyperledger-labs/yui-wasm-relayer/log"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

//go:generate mockgen -source=client.go -destination=mock_adapter_test.go -package=light_test -exclude_interfaces=MisbehaviourSource

// Adapter is the chain-native side of the light client. B is the native block:
// a header together with whatever consensus proof the chain family needs.
type Adapter[B any] interface {
	// ChainID returns the ID of the source chain
	ChainID() string

	// Revision returns the revision number the adapter is configured for
	Revision() uint64

	// FirstBlock returns the block the light client was anchored at
	FirstBlock(ctx context.Context) (B, error)

	// FetchBlocks fetches the blocks at the supporting heights and at target.
	// Any failure fails the whole batch.
	FetchBlocks(ctx context.Context, heights []uint64, target uint64) (core.Verified[B], error)

	// BlockHeight returns the height of a block
	BlockHeight(block B) clienttypes.Height

	// EncodeHeader returns the chain-native encoding of the header of a block
	EncodeHeader(block B) ([]byte, error)
}

// MisbehaviourSource is implemented by adapters that can compare a header
// submitted to a counterparty with the canonical one.
type MisbehaviourSource[B any] interface {
	// HeaderHash returns the hash of a chain-native header encoding
	HeaderHash(data []byte) ([]byte, error)
	// BlockHash returns the hash of the header of a block
	BlockHash(block B) []byte
}

// Client runs the verification protocol against one source chain.
type Client[B any] struct {
	adapter  Adapter[B]
	registry *wasm.Registry
	chainID  string
	revision uint64
}

func NewClient[B any](adapter Adapter[B], registry *wasm.Registry) *Client[B] {
	return &Client[B]{
		adapter:  adapter,
		registry: registry,
		chainID:  adapter.ChainID(),
		revision: adapter.Revision(),
	}
}

func (c *Client[B]) Adapter() Adapter[B] {
	return c.adapter
}

// Verify fetches the target block and every block strictly between trusted and
// target. A target height of zero asks for the anchor block.
func (c *Client[B]) Verify(ctx context.Context, trusted, target clienttypes.Height, cs *wasm.ClientState) (core.Verified[B], error) {
	logger := c.logger()

	if trusted.RevisionNumber != target.RevisionNumber {
		return c.fail(ctx, "revision", errorsmod.Wrapf(coreerrors.ErrRevisionMismatch, "trusted=%s target=%s", trusted, target))
	}
	if err := core.CheckRevision(c.revision, trusted, target); err != nil {
		return c.fail(ctx, "revision", err)
	}
	if _, _, err := c.registry.Decode(cs); err != nil {
		return c.fail(ctx, "client_type", err)
	}

	if target.RevisionHeight == 0 {
		first, err := c.adapter.FirstBlock(ctx)
		if err != nil {
			return c.fail(ctx, "fetch", err)
		}
		return core.Verified[B]{Target: first, Supporting: []B{}}, nil
	}

	heights, err := SupportingHeights(trusted.RevisionHeight, target.RevisionHeight)
	if err != nil {
		return c.fail(ctx, "overflow", err)
	}
	v, err := c.adapter.FetchBlocks(ctx, heights, target.RevisionHeight)
	if err != nil {
		return c.fail(ctx, "fetch", err)
	}
	if len(v.Supporting) != len(heights) {
		return c.fail(ctx, "fetch", errorsmod.Wrapf(coreerrors.ErrDecode, "expected %d supporting blocks, got %d", len(heights), len(v.Supporting)))
	}
	if v.Supporting == nil {
		v.Supporting = []B{}
	}

	telemetry.RecordSupportingHeaders(ctx, c.chainID, len(v.Supporting))
	logger.DebugContext(ctx, "verified header range",
		"trusted", trusted.String(), "target", target.String(), "supporting", len(v.Supporting))
	return v, nil
}

// HeaderAndMinimalSet runs Verify and wraps every block header for submission.
func (c *Client[B]) HeaderAndMinimalSet(ctx context.Context, trusted, target clienttypes.Height, cs *wasm.ClientState) (core.Verified[*wasm.Header], error) {
	v, err := c.Verify(ctx, trusted, target, cs)
	if err != nil {
		return core.Verified[*wasm.Header]{}, err
	}
	return core.MapVerified(v, c.WrapHeader)
}

// Fetch returns the block at a single height.
func (c *Client[B]) Fetch(ctx context.Context, height clienttypes.Height) (B, error) {
	var zero B
	if err := core.CheckRevision(c.revision, height); err != nil {
		return zero, err
	}
	if height.RevisionHeight == 0 {
		return c.adapter.FirstBlock(ctx)
	}
	v, err := c.adapter.FetchBlocks(ctx, nil, height.RevisionHeight)
	if err != nil {
		return zero, err
	}
	return v.Target, nil
}

// WrapHeader encodes the header of block as a wrapped header.
func (c *Client[B]) WrapHeader(block B) (*wasm.Header, error) {
	data, err := c.adapter.EncodeHeader(block)
	if err != nil {
		return nil, err
	}
	return &wasm.Header{Height: c.adapter.BlockHeight(block), Data: data}, nil
}

func (c *Client[B]) fail(ctx context.Context, kind string, err error) (core.Verified[B], error) {
	telemetry.RecordVerifyFailure(ctx, c.chainID, kind)
	return core.Verified[B]{}, err
}

func (c *Client[B]) logger() *log.RelayLogger {
	return log.GetLogger().WithChainID(c.chainID).WithModule("light")
}
