package istanbul

import (
	"context"
	"errors"

	errorsmod "cosmossdk.io/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/light"
)

// adapter reads headers with eth_getBlockByNumber and the signing committee
// with istanbul_getSnapshot. Each kind is fetched in a single batch call.
type adapter struct {
	chain *Chain
}

var (
	_ light.Adapter[*Block]            = (*adapter)(nil)
	_ light.MisbehaviourSource[*Block] = (*adapter)(nil)
)

func (a *adapter) ChainID() string {
	return a.chain.config.ChainID
}

func (a *adapter) Revision() uint64 {
	return a.chain.config.Revision
}

// FirstBlock returns the anchored block, or the genesis block when no anchor is stored.
func (a *adapter) FirstBlock(ctx context.Context) (*Block, error) {
	anchor, err := a.chain.store.AnchorHeight(a.chain.ID(), clienttypes.ZeroHeight())
	if err != nil {
		return nil, err
	}
	v, err := a.FetchBlocks(ctx, nil, anchor.RevisionHeight)
	if err != nil {
		return nil, err
	}
	return v.Target, nil
}

// FetchBlocks fetches headers and snapshots concurrently and pairs them up.
// Supporting blocks precede the target in the batch.
func (a *adapter) FetchBlocks(ctx context.Context, heights []uint64, target uint64) (core.Verified[*Block], error) {
	all := append(append(make([]uint64, 0, len(heights)+1), heights...), target)

	var (
		headers   []*types.Header
		snapshots []*Snapshot
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.chain.rt.Do(ctx, func(ctx context.Context) (err error) {
			headers, err = a.FetchHeaders(ctx, all)
			return err
		})
	})
	eg.Go(func() error {
		return a.chain.rt.Do(ctx, func(ctx context.Context) (err error) {
			snapshots, err = a.FetchSnapshots(ctx, all)
			return err
		})
	})
	if err := eg.Wait(); err != nil {
		return core.Verified[*Block]{}, err
	}

	blocks := make([]*Block, len(all))
	for i := range all {
		blocks[i] = &Block{Header: headers[i], Snapshot: snapshots[i]}
	}
	if err := checkContinuity(blocks, a.chain.config.Epoch); err != nil {
		return core.Verified[*Block]{}, err
	}
	return core.Verified[*Block]{
		Target:     blocks[len(blocks)-1],
		Supporting: blocks[:len(blocks)-1],
	}, nil
}

// FetchHeaders returns the headers at heights, in order.
func (a *adapter) FetchHeaders(ctx context.Context, heights []uint64) ([]*types.Header, error) {
	if len(heights) == 0 {
		return nil, nil
	}
	headers := make([]*types.Header, len(heights))
	batch := make([]rpc.BatchElem, len(heights))
	for i, h := range heights {
		batch[i] = rpc.BatchElem{
			Method: "eth_getBlockByNumber",
			Args:   []any{hexutil.EncodeUint64(h), false},
			Result: &headers[i],
		}
	}
	if err := a.chain.rpc.BatchCallContext(ctx, batch); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "header batch of %d: %v", len(heights), err)
	}
	for i, elem := range batch {
		if elem.Error != nil {
			return nil, rpcError(elem.Error, "header at %d", heights[i])
		}
		if headers[i] == nil {
			return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "header at %d", heights[i])
		}
		if n := headers[i].Number; n == nil || n.Uint64() != heights[i] {
			return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "header at %d has number %v", heights[i], n)
		}
	}
	return headers, nil
}

// FetchSnapshots returns the validator snapshots at heights, in order.
func (a *adapter) FetchSnapshots(ctx context.Context, heights []uint64) ([]*Snapshot, error) {
	if len(heights) == 0 {
		return nil, nil
	}
	snapshots := make([]*Snapshot, len(heights))
	batch := make([]rpc.BatchElem, len(heights))
	for i, h := range heights {
		batch[i] = rpc.BatchElem{
			Method: "istanbul_getSnapshot",
			Args:   []any{hexutil.EncodeUint64(h)},
			Result: &snapshots[i],
		}
	}
	if err := a.chain.rpc.BatchCallContext(ctx, batch); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "snapshot batch of %d: %v", len(heights), err)
	}
	for i, elem := range batch {
		if elem.Error != nil {
			return nil, rpcError(elem.Error, "snapshot at %d", heights[i])
		}
		if snapshots[i] == nil {
			return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "snapshot at %d", heights[i])
		}
		if snapshots[i].Number != heights[i] {
			return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "snapshot at %d has number %d", heights[i], snapshots[i].Number)
		}
	}
	return snapshots, nil
}

// checkContinuity rejects a run of blocks in which two adjacent snapshots of
// the same epoch report different committees.
func checkContinuity(blocks []*Block, epochSize uint64) error {
	for i := 1; i < len(blocks); i++ {
		prev, cur := blocks[i-1], blocks[i]
		if cur.Number() != prev.Number()+1 {
			continue
		}
		epoch := snapshotEpoch(cur.Number(), epochSize)
		if snapshotEpoch(prev.Number(), epochSize) != epoch {
			continue
		}
		if !sameValidators(prev.Snapshot.Validators, cur.Snapshot.Validators) {
			return errorsmod.Wrapf(coreerrors.ErrValidatorSetDiscontinuity,
				"validators changed between %d and %d within epoch %d",
				prev.Number(), cur.Number(), epoch)
		}
	}
	return nil
}

// snapshotEpoch returns the epoch whose committee the snapshot taken at a
// block carries. A snapshot holds the validators of the following block, so
// the snapshot of an epoch's last block already belongs to the next epoch.
func snapshotEpoch(number, epochSize uint64) uint64 {
	return number/epochSize + 1
}

func (a *adapter) BlockHeight(block *Block) clienttypes.Height {
	return clienttypes.NewHeight(a.chain.config.Revision, block.Number())
}

func (a *adapter) EncodeHeader(block *Block) ([]byte, error) {
	return encodeHeader(block.Header)
}

func (a *adapter) HeaderHash(data []byte) ([]byte, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	return h.Hash().Bytes(), nil
}

func (a *adapter) BlockHash(block *Block) []byte {
	return block.Header.Hash().Bytes()
}

// rpcError classifies an RPC failure. Missing blocks and states are reported
// as not found.
func rpcError(err error, format string, args ...any) error {
	if errors.Is(err, ethereum.NotFound) {
		return errorsmod.Wrapf(coreerrors.ErrNotFound, format+": %v", append(args, err)...)
	}
	return errorsmod.Wrapf(coreerrors.ErrNetwork, format+": %v", append(args, err)...)
}
