package mock

import (
	"context"
	"crypto/sha256"

	errorsmod "cosmossdk.io/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	mocktypes "github.com/datachainlab/ibc-mock-client/modules/light-clients/xx-mock/types"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/light"
)

type adapter struct {
	chain *Chain
}

var (
	_ light.Adapter[*mocktypes.Header]            = (*adapter)(nil)
	_ light.MisbehaviourSource[*mocktypes.Header] = (*adapter)(nil)
)

func (a *adapter) ChainID() string {
	return a.chain.config.ChainID
}

func (a *adapter) Revision() uint64 {
	return a.chain.config.Revision
}

func (a *adapter) FirstBlock(ctx context.Context) (*mocktypes.Header, error) {
	a.chain.mu.RLock()
	first := a.chain.first
	a.chain.mu.RUnlock()
	if first == 0 {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "chain %s has no blocks", a.chain.config.ChainID)
	}
	return a.block(ctx, first)
}

func (a *adapter) FetchBlocks(ctx context.Context, heights []uint64, target uint64) (core.Verified[*mocktypes.Header], error) {
	return light.FetchConcurrently(ctx, a.chain.rt, heights, target, a.block)
}

func (a *adapter) block(_ context.Context, height uint64) (*mocktypes.Header, error) {
	a.chain.mu.RLock()
	defer a.chain.mu.RUnlock()
	if err := a.chain.reachable(); err != nil {
		return nil, err
	}
	h, ok := a.chain.blocks[height]
	if !ok {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "block %d of chain %s", height, a.chain.config.ChainID)
	}
	return h, nil
}

func (a *adapter) BlockHeight(block *mocktypes.Header) clienttypes.Height {
	return block.Height
}

func (a *adapter) EncodeHeader(block *mocktypes.Header) ([]byte, error) {
	return block.Marshal()
}

func (a *adapter) HeaderHash(data []byte) ([]byte, error) {
	var h mocktypes.Header
	if err := h.Unmarshal(data); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}

func (a *adapter) BlockHash(block *mocktypes.Header) []byte {
	bz, err := block.Marshal()
	if err != nil {
		return nil
	}
	sum := sha256.Sum256(bz)
	return sum[:]
}
