package tendermint

import (
	"fmt"
	"slices"

	errorsmod "cosmossdk.io/errors"
	upgradetypes "cosmossdk.io/x/upgrade/types"
	abci "github.com/cometbft/cometbft/abci/types"
	rpcclient "github.com/cometbft/cometbft/rpc/client"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	"github.com/cosmos/cosmos-sdk/types/query"
	proto "github.com/cosmos/gogoproto/proto"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	host "github.com/cosmos/ibc-go/v8/modules/core/24-host"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

// RawState returns the value stored under key in a module store at ctx.Height().
// A zero height queries the latest state.
func (c *Chain) RawState(ctx core.QueryContext, storeName string, key []byte) ([]byte, error) {
	what := fmt.Sprintf("%s/%x", storeName, key)
	res, err := c.abciQuery(ctx, fmt.Sprintf("/store/%s/key", storeName), key, true, what)
	if err != nil {
		return nil, err
	}
	if len(res.Value) == 0 {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "%s at %s", what, ctx.Height())
	}
	return res.Value, nil
}

// grpcQuery routes a gRPC query of the IBC module through ABCI. Responses are
// decoded without resolving their Anys, so clients of unregistered types decode.
func (c *Chain) grpcQuery(ctx core.QueryContext, method string, req, res proto.Message) error {
	bz, err := proto.Marshal(req)
	if err != nil {
		return errorsmod.Wrapf(coreerrors.ErrEncode, "%s request: %v", method, err)
	}
	r, err := c.abciQuery(ctx, method, bz, false, method)
	if err != nil {
		return err
	}
	if err := proto.Unmarshal(r.Value, res); err != nil {
		return errorsmod.Wrapf(coreerrors.ErrDecode, "%s response: %v", method, err)
	}
	return nil
}

func (c *Chain) abciQuery(ctx core.QueryContext, path string, data []byte, prove bool, what string) (*abci.ResponseQuery, error) {
	if !ctx.Height().IsZero() {
		if err := core.CheckRevision(c.revision, ctx.Height()); err != nil {
			return nil, err
		}
	}
	height, err := core.SignedHeight(ctx.Height().RevisionHeight)
	if err != nil {
		return nil, err
	}
	res, err := c.client.ABCIQueryWithOptions(ctx.Context(), path, data, rpcclient.ABCIQueryOptions{Height: height, Prove: prove})
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "abci query %s: %v", what, err)
	}
	if !res.Response.IsOK() {
		return nil, queryError(res.Response, what)
	}
	return &res.Response, nil
}

// queryError classifies a query the node answered with a non-zero code.
// Such answers are deterministic, so none of them is retried as a network error.
func queryError(res abci.ResponseQuery, what string) error {
	if res.Codespace == sdkerrors.RootCodespace {
		switch res.Code {
		case sdkerrors.ErrUnknownRequest.ABCICode():
			return errorsmod.Wrapf(coreerrors.ErrUnsupported, "abci query %s: %s", what, res.Log)
		case sdkerrors.ErrKeyNotFound.ABCICode(), sdkerrors.ErrNotFound.ABCICode(),
			sdkerrors.ErrInvalidHeight.ABCICode(), sdkerrors.ErrInvalidRequest.ABCICode():
			return errorsmod.Wrapf(coreerrors.ErrNotFound, "abci query %s: %s", what, res.Log)
		}
	}
	return errorsmod.Wrapf(coreerrors.ErrDecode, "abci query %s rejected with %s/%d: %s", what, res.Codespace, res.Code, res.Log)
}

func (c *Chain) QueryCommitmentPrefix() (commitmenttypes.MerklePrefix, error) {
	return commitmenttypes.NewMerklePrefix([]byte(c.config.storePrefix())), nil
}

// QueryClients pages through every client of the IBC module and keeps the wasm ones.
func (c *Chain) QueryClients(ctx core.QueryContext) ([]*core.IdentifiedClientState, error) {
	var (
		clients []*core.IdentifiedClientState
		req     clienttypes.QueryClientStatesRequest
	)
	for {
		var res clienttypes.QueryClientStatesResponse
		if err := c.grpcQuery(ctx, "/ibc.core.client.v1.Query/ClientStates", &req, &res); err != nil {
			return nil, err
		}
		for _, ics := range res.ClientStates {
			if ics.ClientState == nil || ics.ClientState.TypeUrl != wasm.ClientStateTypeURL {
				continue
			}
			cs, err := wasm.UnpackClientState(ics.ClientState)
			if err != nil {
				return nil, errorsmod.Wrapf(err, "client %s", ics.ClientId)
			}
			clients = append(clients, &core.IdentifiedClientState{ClientID: ics.ClientId, ClientState: cs})
		}
		if res.Pagination == nil || len(res.Pagination.NextKey) == 0 {
			return clients, nil
		}
		req.Pagination = &query.PageRequest{Key: res.Pagination.NextKey}
	}
}

func (c *Chain) QueryConsensusStates(ctx core.QueryContext, clientID string) ([]*core.ConsensusStateWithHeight, error) {
	var (
		states []*core.ConsensusStateWithHeight
		req    = clienttypes.QueryConsensusStatesRequest{ClientId: clientID}
	)
	for {
		var res clienttypes.QueryConsensusStatesResponse
		if err := c.grpcQuery(ctx, "/ibc.core.client.v1.Query/ConsensusStates", &req, &res); err != nil {
			return nil, err
		}
		for _, csh := range res.ConsensusStates {
			cs, err := wasm.UnpackConsensusState(csh.ConsensusState)
			if err != nil {
				return nil, errorsmod.Wrapf(err, "client %s at %s", clientID, csh.Height)
			}
			states = append(states, &core.ConsensusStateWithHeight{Height: csh.Height, ConsensusState: cs})
		}
		if res.Pagination == nil || len(res.Pagination.NextKey) == 0 {
			break
		}
		req.Pagination = &query.PageRequest{Key: res.Pagination.NextKey}
	}
	// the store orders heights by their string form
	slices.SortFunc(states, func(a, b *core.ConsensusStateWithHeight) int {
		return int(a.Height.Compare(b.Height))
	})
	return states, nil
}

func (c *Chain) QueryClientConnections(ctx core.QueryContext, clientID string) ([]string, error) {
	bz, err := c.RawState(ctx, ibcexported.StoreKey, host.ClientConnectionsKey(clientID))
	if err != nil {
		return nil, err
	}
	var paths conntypes.ClientPaths
	if err := c.codec.Unmarshal(bz, &paths); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "connections of client %s: %v", clientID, err)
	}
	return paths.Paths, nil
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
	if err := c.codec.Unmarshal(bz, &conn); err != nil {
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
	if err := c.codec.Unmarshal(bz, &ch); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "channel %s/%s: %v", portID, channelID, err)
	}
	return &ch, nil
}

func (c *Chain) QueryPacketCommitment(ctx core.QueryContext, portID, channelID string, sequence uint64) ([]byte, error) {
	return c.RawState(ctx, ibcexported.StoreKey, host.PacketCommitmentKey(portID, channelID, sequence))
}

// QueryUpgradedClientState reads the pending upgrade plan and the client state
// committed for it by the upgrade module.
func (c *Chain) QueryUpgradedClientState(ctx core.QueryContext) (*wasm.ClientState, error) {
	bz, err := c.RawState(ctx, upgradetypes.StoreKey, upgradetypes.PlanKey())
	if err != nil {
		return nil, errorsmod.Wrap(err, "no upgrade is scheduled")
	}
	var plan upgradetypes.Plan
	if err := c.codec.Unmarshal(bz, &plan); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "upgrade plan: %v", err)
	}
	bz, err = c.RawState(ctx, upgradetypes.StoreKey, upgradetypes.UpgradedClientKey(plan.Height))
	if err != nil {
		return nil, err
	}
	anyState, err := unmarshalAny(bz)
	if err != nil {
		return nil, err
	}
	return wasm.UnpackClientState(anyState)
}

func unmarshalAny(bz []byte) (*codectypes.Any, error) {
	var anyState codectypes.Any
	if err := anyState.Unmarshal(bz); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "any: %v", err)
	}
	return &anyState, nil
}
