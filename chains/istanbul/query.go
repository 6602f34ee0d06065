package istanbul

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/gogoproto/proto"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
	"github.com/ethereum/go-ethereum"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

// RawState calls getRawState on the host contract at ctx.Height(). A zero
// height queries the latest state.
func (c *Chain) RawState(ctx core.QueryContext, path string, key []byte) ([]byte, error) {
	var blockNumber *big.Int
	if h := ctx.Height(); !h.IsZero() {
		if err := core.CheckRevision(c.config.Revision, h); err != nil {
			return nil, err
		}
		blockNumber = new(big.Int).SetUint64(h.RevisionHeight)
	}
	input, err := HostABI.Pack(methodGetRawState, path, key)
	if err != nil {
		return nil, err
	}
	hostAddr := c.config.hostAddress()
	out, err := c.eth.CallContract(ctx.Context(), ethereum.CallMsg{To: &hostAddr, Data: input}, blockNumber)
	if err != nil {
		return nil, rpcError(err, "getRawState %s/%x", path, key)
	}
	values, err := HostABI.Unpack(methodGetRawState, out)
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "getRawState %s/%x: %v", path, key, err)
	}
	if len(values) != 2 {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "getRawState %s/%x returned %d values", path, key, len(values))
	}
	value, ok0 := values[0].([]byte)
	found, ok1 := values[1].(bool)
	if !ok0 || !ok1 {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "getRawState %s/%x returned %T, %T", path, key, values[0], values[1])
	}
	if !found {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "%s/%s at %s", path, key, ctx.Height())
	}
	return value, nil
}

func (c *Chain) QueryClientState(ctx core.QueryContext, clientID string) (*wasm.ClientState, error) {
	bz, err := c.RawState(ctx, ibcexported.StoreKey, host.FullClientStateKey(clientID))
	if err != nil {
		return nil, err
	}
	anyState, err := unmarshalAny(bz)
	if err != nil {
		return nil, err
	}
	return wasm.UnpackClientState(anyState)
}

func (c *Chain) QueryConsensusState(ctx core.QueryContext, clientID string, consensusHeight clienttypes.Height) (*wasm.ConsensusState, error) {
	bz, err := c.RawState(ctx, ibcexported.StoreKey, host.FullConsensusStateKey(clientID, consensusHeight))
	if err != nil {
		return nil, err
	}
	anyState, err := unmarshalAny(bz)
	if err != nil {
		return nil, err
	}
	return wasm.UnpackConsensusState(anyState)
}

func (c *Chain) QueryConnection(ctx core.QueryContext, connectionID string) (*conntypes.ConnectionEnd, error) {
	bz, err := c.RawState(ctx, ibcexported.StoreKey, host.ConnectionKey(connectionID))
	if err != nil {
		return nil, err
	}
	var conn conntypes.ConnectionEnd
	if err := proto.Unmarshal(bz, &conn); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "connection %s: %v", connectionID, err)
	}
	return &conn, nil
}

func (c *Chain) QueryChannel(ctx core.QueryContext, portID, channelID string) (*chantypes.Channel, error) {
	bz, err := c.RawState(ctx, ibcexported.StoreKey, host.ChannelKey(portID, channelID))
	if err != nil {
		return nil, err
	}
	var ch chantypes.Channel
	if err := proto.Unmarshal(bz, &ch); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "channel %s/%s: %v", portID, channelID, err)
	}
	return &ch, nil
}

func (c *Chain) QueryPacketCommitment(ctx core.QueryContext, portID, channelID string, sequence uint64) ([]byte, error) {
	return c.RawState(ctx, ibcexported.StoreKey, host.PacketCommitmentKey(portID, channelID, sequence))
}

func (c *Chain) QueryCommitmentPrefix() (commitmenttypes.MerklePrefix, error) {
	return commitmenttypes.NewMerklePrefix([]byte(c.config.storePrefix())), nil
}

// QueryClients is unsupported: the host contract cannot enumerate its clients.
func (c *Chain) QueryClients(ctx core.QueryContext) ([]*core.IdentifiedClientState, error) {
	return nil, errorsmod.Wrapf(coreerrors.ErrUnsupported, "client listing on chain %s", c.ID())
}

// QueryConsensusStates is unsupported: consensus states are only addressable by height.
func (c *Chain) QueryConsensusStates(ctx core.QueryContext, clientID string) ([]*core.ConsensusStateWithHeight, error) {
	return nil, errorsmod.Wrapf(coreerrors.ErrUnsupported, "consensus state listing of %s on chain %s", clientID, c.ID())
}

func (c *Chain) QueryClientConnections(ctx core.QueryContext, clientID string) ([]string, error) {
	bz, err := c.RawState(ctx, ibcexported.StoreKey, host.ClientConnectionsKey(clientID))
	if err != nil {
		return nil, err
	}
	var paths conntypes.ClientPaths
	if err := proto.Unmarshal(bz, &paths); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "connections of client %s: %v", clientID, err)
	}
	return paths.Paths, nil
}

// QueryUpgradedClientState is unsupported: the host contract has no upgrade module.
func (c *Chain) QueryUpgradedClientState(ctx core.QueryContext) (*wasm.ClientState, error) {
	return nil, errorsmod.Wrapf(coreerrors.ErrUnsupported, "upgraded client state on chain %s", c.ID())
}

func unmarshalAny(bz []byte) (*codectypes.Any, error) {
	var anyState codectypes.Any
	if err := proto.Unmarshal(bz, &anyState); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "any: %v", err)
	}
	return &anyState, nil
}
