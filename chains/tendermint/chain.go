package tendermint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/cometbft/cometbft/light"
	rpcclient "github.com/cometbft/cometbft/rpc/client"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	libclient "github.com/cometbft/cometbft/rpc/jsonrpc/client"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	ibctm "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	lightclient "github.com/hyperledger-labs/yui-wasm-relayer/light"
	"github.com/hyperledger-labs/yui-wasm-relayer/log"
	"github.com/hyperledger-labs/yui-wasm-relayer/monitor"
	"github.com/hyperledger-labs/yui-wasm-relayer/signer"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

const Family = "tendermint"

// Chain is the endpoint of a cometbft chain. Blocks are read over the
// cometbft RPC and transactions are built with the cosmos-sdk tx pipeline.
type Chain struct {
	config   ChainConfig
	homePath string
	codeID   []byte
	revision uint64

	rt        *core.Runtime
	codec     codec.ProtoCodecMarshaler
	client    rpcclient.Client
	keys      *signer.Keyring
	registry  *wasm.Registry
	light     *lightclient.Client[*ibctm.Header]
	store     *lightclient.Store
	submitter core.Submitter
	monitors  monitor.Slot
}

var _ core.ChainEndpoint = (*Chain)(nil)

// NewChain builds the endpoint without contacting the chain.
func NewChain(rt *core.Runtime, config ChainConfig, homePath string) (*Chain, error) {
	client, err := newRPCClient(config.RPCAddr, config.timeout())
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "rpc_addr: %v", err)
	}
	cdc := makeCodec()
	keys, err := signer.NewKeyring(config.KeyringBackend, keysDir(homePath, config.ChainID), config.AccountPrefix, cdc)
	if err != nil {
		return nil, err
	}
	store, err := lightclient.OpenStore(lightDir(homePath), config.ChainID)
	if err != nil {
		return nil, err
	}
	return newChain(rt, config, homePath, cdc, client, keys, store)
}

func newChain(rt *core.Runtime, config ChainConfig, homePath string, cdc codec.ProtoCodecMarshaler, client rpcclient.Client, keys *signer.Keyring, store *lightclient.Store) (*Chain, error) {
	codeID, err := hex.DecodeString(config.CodeID)
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "code_id: %v", err)
	}
	registry, err := wasm.NewRegistry(wasm.RegistryEntry{
		CodeID: codeID,
		Family: Family,
		Decode: DecodeClientState,
	})
	if err != nil {
		return nil, err
	}
	c := &Chain{
		config:   config,
		homePath: homePath,
		codeID:   codeID,
		revision: clienttypes.ParseChainID(config.ChainID),
		rt:       rt,
		codec:    cdc,
		client:   client,
		keys:     keys,
		registry: registry,
		store:    store,
	}
	c.light = lightclient.NewClient[*ibctm.Header](&adapter{chain: c}, registry)
	c.submitter = &txSubmitter{chain: c}
	return c, nil
}

// DecodeClientState decodes the native client state carried by a wrapped client state.
func DecodeClientState(data []byte) (any, error) {
	var cs ibctm.ClientState
	if err := cs.Unmarshal(data); err != nil {
		return nil, err
	}
	return &cs, nil
}

func newRPCClient(addr string, timeout time.Duration) (*rpchttp.HTTP, error) {
	httpClient, err := libclient.DefaultHTTPClient(addr)
	if err != nil {
		return nil, err
	}

	httpClient.Timeout = timeout
	rpcClient, err := rpchttp.NewWithClient(addr, "/websocket", httpClient)
	if err != nil {
		return nil, err
	}

	return rpcClient, nil
}

func GetChainLogger() *log.RelayLogger {
	return log.GetLogger().
		WithModule("tendermint.chain")
}

func (c *Chain) ID() string {
	return c.config.ChainID
}

func (c *Chain) Config() ChainConfig {
	return c.config
}

func (c *Chain) Codec() codec.ProtoCodecMarshaler {
	return c.codec
}

func (c *Chain) Registry() *wasm.Registry {
	return c.registry
}

func (c *Chain) Light() *lightclient.Client[*ibctm.Header] {
	return c.light
}

func (c *Chain) HealthCheck(ctx context.Context) core.HealthCheck {
	res, err := c.client.Status(ctx)
	if err != nil {
		return core.NewUnhealthy(fmt.Sprintf("status query failed: %v", err))
	}
	if res.SyncInfo.CatchingUp {
		return core.NewUnhealthy(fmt.Sprintf("node at %s is catching up", c.config.RPCAddr))
	}
	return core.NewHealthy()
}

func (c *Chain) GetSigner(ctx context.Context) (string, error) {
	key, err := c.GetKey(ctx)
	if err != nil {
		return "", err
	}
	return key.Address, nil
}

func (c *Chain) GetKey(ctx context.Context) (*core.KeyEntry, error) {
	return c.keys.GetKey(c.config.Key)
}

func (c *Chain) Keybase() core.KeyStore {
	return c.keys
}

func (c *Chain) SendMessagesAndWaitCommit(ctx context.Context, msgs []*codectypes.Any) ([]core.IBCEvent, error) {
	if err := core.ValidateMsgs(msgs); err != nil {
		return nil, err
	}
	res, err := c.submitter.Commit(ctx, msgs)
	if err != nil {
		return nil, err
	}
	var events []core.IBCEvent
	for _, r := range res {
		events = append(events, r.Events...)
	}
	return events, nil
}

func (c *Chain) SendMessagesAndWaitCheckTx(ctx context.Context, msgs []*codectypes.Any) ([]*core.TxResponse, error) {
	if err := core.ValidateMsgs(msgs); err != nil {
		return nil, err
	}
	return c.submitter.CheckTx(ctx, msgs)
}

// LatestHeight queries the chain for the latest height and returns it
func (c *Chain) QueryLatestHeight(ctx context.Context) (clienttypes.Height, error) {
	res, err := c.client.Status(ctx)
	if err != nil {
		return clienttypes.Height{}, errorsmod.Wrapf(coreerrors.ErrNetwork, "status: %v", err)
	} else if res.SyncInfo.CatchingUp {
		return clienttypes.Height{}, errorsmod.Wrapf(coreerrors.ErrNetwork, "node at %s running chain %s not caught up", c.config.RPCAddr, c.ID())
	}
	return clienttypes.NewHeight(c.revision, uint64(res.SyncInfo.LatestBlockHeight)), nil
}

func (c *Chain) BuildClientState(ctx context.Context, height clienttypes.Height) (*wasm.ClientState, error) {
	if err := core.CheckRevision(c.revision, height); err != nil {
		return nil, err
	}
	native := ibctm.NewClientState(
		c.config.ChainID,
		ibctm.NewFractionFromTm(light.DefaultTrustLevel),
		c.config.trustingPeriod(),
		c.config.unbondingPeriod(),
		c.config.maxClockDrift(),
		height,
		commitmenttypes.GetSDKSpecs(),
		[]string{"upgrade", "upgradedIBCState"},
	)
	data, err := native.Marshal()
	if err != nil {
		return nil, err
	}
	return &wasm.ClientState{
		Data:         data,
		CodeID:       c.codeID,
		ChainID:      c.config.ChainID,
		LatestHeight: height,
	}, nil
}

func (c *Chain) BuildConsensusState(ctx context.Context, height clienttypes.Height) (*wasm.ConsensusState, error) {
	header, err := c.light.Fetch(ctx, height)
	if err != nil {
		return nil, err
	}
	return c.buildConsensusState(header)
}

func (c *Chain) buildConsensusState(header *ibctm.Header) (*wasm.ConsensusState, error) {
	native := header.ConsensusState()
	data, err := native.Marshal()
	if err != nil {
		return nil, err
	}
	return &wasm.ConsensusState{
		Data:      data,
		CodeID:    c.codeID,
		Timestamp: uint64(native.Timestamp.Unix()),
		Root:      native.Root,
	}, nil
}

func (c *Chain) BuildHeader(ctx context.Context, trusted, target clienttypes.Height, cs *wasm.ClientState) (*wasm.Header, []*wasm.Header, error) {
	v, err := c.light.HeaderAndMinimalSet(ctx, trusted, target, cs)
	if err != nil {
		return nil, nil, err
	}
	return v.Target, v.Supporting, nil
}

func (c *Chain) CheckMisbehaviour(ctx context.Context, ev *core.EventUpdateClient, cs *wasm.ClientState) (*core.MisbehaviourEvidence, error) {
	return c.light.CheckMisbehaviour(ctx, ev, cs)
}

// InitLightClient records the latest block as the anchor unless one is already stored.
func (c *Chain) InitLightClient(ctx context.Context) error {
	logger := GetChainLogger().WithChainID(c.ID())
	if h, err := c.store.Anchor(c.ID()); err == nil {
		logger.Info("light client already initialized", "height", h.Height.String())
		return nil
	} else if !errorsmod.IsOf(err, coreerrors.ErrNotFound) {
		return err
	}

	latest, err := c.QueryLatestHeight(ctx)
	if err != nil {
		return err
	}
	block, err := c.light.Fetch(ctx, latest)
	if err != nil {
		return err
	}
	header, err := c.light.WrapHeader(block)
	if err != nil {
		return err
	}
	if err := c.store.SaveAnchor(c.ID(), header); err != nil {
		return err
	}
	logger.Info("light client initialized", "height", header.Height.String())
	return nil
}

func (c *Chain) InitEventMonitor(ctx context.Context) (<-chan *core.EventBatchOrError, core.EventMonitor, error) {
	sub, err := newBlockSubscription(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	h, out := monitor.Start(c.rt, c.ID(), sub)
	if err := c.monitors.Replace(ctx, h); err != nil {
		GetChainLogger().WithChainID(c.ID()).Error("failed to stop the previous event monitor", err)
	}
	return out, h, nil
}

// Shutdown stops the event monitor, the websocket client it started and the
// anchor store. Every step runs even when an earlier one fails.
func (c *Chain) Shutdown(ctx context.Context) error {
	err := c.monitors.Shutdown(ctx)
	if c.client.IsRunning() {
		if stopErr := c.client.Stop(); stopErr != nil {
			err = errors.Join(err, errorsmod.Wrapf(coreerrors.ErrNetwork, "stop rpc client: %v", stopErr))
		}
	}
	return errors.Join(err, c.store.Close())
}
