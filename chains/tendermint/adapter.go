package tendermint

import (
	"context"
	"strings"

	errorsmod "cosmossdk.io/errors"
	tmtypes "github.com/cometbft/cometbft/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	ibctm "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/light"
)

const validatorsPerPage = 100

// adapter reads signed headers and validator sets over the cometbft RPC.
// Every returned header trusts the height right below it, which holds for a
// contiguous run of supporting heights.
type adapter struct {
	chain *Chain
}

var (
	_ light.Adapter[*ibctm.Header]            = (*adapter)(nil)
	_ light.MisbehaviourSource[*ibctm.Header] = (*adapter)(nil)
)

func (a *adapter) ChainID() string {
	return a.chain.config.ChainID
}

func (a *adapter) Revision() uint64 {
	return a.chain.revision
}

// FirstBlock returns the anchored block, or the earliest block the node still has.
func (a *adapter) FirstBlock(ctx context.Context) (*ibctm.Header, error) {
	anchor, err := a.chain.store.AnchorHeight(a.chain.ID(), clienttypes.ZeroHeight())
	if err != nil {
		return nil, err
	}
	if !anchor.IsZero() {
		return a.block(ctx, anchor.RevisionHeight)
	}
	status, err := a.chain.client.Status(ctx)
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "status: %v", err)
	}
	return a.block(ctx, uint64(status.SyncInfo.EarliestBlockHeight))
}

func (a *adapter) FetchBlocks(ctx context.Context, heights []uint64, target uint64) (core.Verified[*ibctm.Header], error) {
	return light.FetchConcurrently(ctx, a.chain.rt, heights, target, a.block)
}

func (a *adapter) block(ctx context.Context, height uint64) (*ibctm.Header, error) {
	h, err := core.SignedHeight(height)
	if err != nil {
		return nil, err
	}
	commit, err := a.chain.client.Commit(ctx, &h)
	if err != nil {
		return nil, rpcError(err, "commit at %d", height)
	}
	vals, err := a.validators(ctx, h)
	if err != nil {
		return nil, err
	}
	valSet, err := tmtypes.NewValidatorSet(vals).ToProto()
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "validator set at %d: %v", height, err)
	}
	trusted := clienttypes.ZeroHeight()
	if height > 1 {
		trusted = clienttypes.NewHeight(a.chain.revision, height-1)
	}
	return &ibctm.Header{
		SignedHeader:      commit.SignedHeader.ToProto(),
		ValidatorSet:      valSet,
		TrustedHeight:     trusted,
		TrustedValidators: valSet,
	}, nil
}

func (a *adapter) validators(ctx context.Context, height int64) ([]*tmtypes.Validator, error) {
	var (
		vals    []*tmtypes.Validator
		page    = 1
		perPage = validatorsPerPage
	)
	for {
		res, err := a.chain.client.Validators(ctx, &height, &page, &perPage)
		if err != nil {
			return nil, rpcError(err, "validators at %d", height)
		}
		vals = append(vals, res.Validators...)
		if len(res.Validators) == 0 || len(vals) >= res.Total {
			return vals, nil
		}
		page++
	}
}

func (a *adapter) BlockHeight(block *ibctm.Header) clienttypes.Height {
	return clienttypes.NewHeight(a.chain.revision, uint64(block.SignedHeader.Header.Height))
}

func (a *adapter) EncodeHeader(block *ibctm.Header) ([]byte, error) {
	return block.Marshal()
}

func (a *adapter) HeaderHash(data []byte) ([]byte, error) {
	var h ibctm.Header
	if err := h.Unmarshal(data); err != nil {
		return nil, err
	}
	if h.SignedHeader == nil || h.SignedHeader.Header == nil {
		return nil, errorsmod.Wrap(coreerrors.ErrMissingField, "signed header")
	}
	return headerHash(&h)
}

func (a *adapter) BlockHash(block *ibctm.Header) []byte {
	hash, err := headerHash(block)
	if err != nil {
		return nil
	}
	return hash
}

func headerHash(h *ibctm.Header) ([]byte, error) {
	hdr, err := tmtypes.HeaderFromProto(h.SignedHeader.Header)
	if err != nil {
		return nil, err
	}
	return hdr.Hash(), nil
}

// rpcError classifies an RPC failure. Heights beyond the head of the chain
// are reported as not found.
func rpcError(err error, format string, args ...any) error {
	msg := err.Error()
	if strings.Contains(msg, "must be less than or equal to the current blockchain height") ||
		strings.Contains(msg, "is not available, lowest height is") {
		return errorsmod.Wrapf(coreerrors.ErrNotFound, format+": %v", append(args, err)...)
	}
	return errorsmod.Wrapf(coreerrors.ErrNetwork, format+": %v", append(args, err)...)
}
