package istanbul

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	errorsmod "cosmossdk.io/errors"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	lightclient "github.com/hyperledger-labs/yui-wasm-relayer/light"
	"github.com/hyperledger-labs/yui-wasm-relayer/log"
	"github.com/hyperledger-labs/yui-wasm-relayer/monitor"
	"github.com/hyperledger-labs/yui-wasm-relayer/signer"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

const Family = "istanbul"

// Chain is the endpoint of an EVM chain sealed by an Istanbul validator
// committee. IBC state lives in a host contract that is read with eth_call
// and written with transactions signed by a keystore account.
type Chain struct {
	config   ChainConfig
	homePath string
	codeID   []byte

	rt        *core.Runtime
	rpc       *rpc.Client
	eth       *ethclient.Client
	host      *bind.BoundContract
	keys      *signer.EthKeystore
	registry  *wasm.Registry
	light     *lightclient.Client[*Block]
	store     *lightclient.Store
	submitter core.Submitter
	monitors  monitor.Slot
}

var _ core.ChainEndpoint = (*Chain)(nil)

// NewChain builds the endpoint. Dialing an HTTP endpoint does not contact the chain.
func NewChain(rt *core.Runtime, config ChainConfig, homePath string) (*Chain, error) {
	client, err := rpc.DialOptions(rt.Context(), config.RPCAddr, rpc.WithHTTPClient(&http.Client{Timeout: config.timeout()}))
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "rpc_addr: %v", err)
	}
	store, err := lightclient.OpenStore(lightDir(homePath), config.ChainID)
	if err != nil {
		client.Close()
		return nil, err
	}
	keys := signer.NewEthKeystore(keystoreDir(homePath, config.ChainID), config.KeystorePassphrase)
	return newChain(rt, config, homePath, client, keys, store)
}

func newChain(rt *core.Runtime, config ChainConfig, homePath string, client *rpc.Client, keys *signer.EthKeystore, store *lightclient.Store) (*Chain, error) {
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
	eth := ethclient.NewClient(client)
	c := &Chain{
		config:   config,
		homePath: homePath,
		codeID:   codeID,
		rt:       rt,
		rpc:      client,
		eth:      eth,
		host:     bind.NewBoundContract(config.hostAddress(), HostABI, eth, eth, eth),
		keys:     keys,
		registry: registry,
		store:    store,
	}
	c.light = lightclient.NewClient[*Block](&adapter{chain: c}, registry)
	c.submitter = &txSubmitter{chain: c}
	return c, nil
}

func GetChainLogger() *log.RelayLogger {
	return log.GetLogger().
		WithModule("istanbul.chain")
}

func (c *Chain) ID() string {
	return c.config.ChainID
}

func (c *Chain) Config() ChainConfig {
	return c.config
}

func (c *Chain) Registry() *wasm.Registry {
	return c.registry
}

func (c *Chain) Light() *lightclient.Client[*Block] {
	return c.light
}

func (c *Chain) HealthCheck(ctx context.Context) core.HealthCheck {
	progress, err := c.eth.SyncProgress(ctx)
	if err != nil {
		return core.NewUnhealthy(fmt.Sprintf("sync status query failed: %v", err))
	}
	if progress != nil {
		return core.NewUnhealthy(fmt.Sprintf("node at %s is syncing (%d/%d)", c.config.RPCAddr, progress.CurrentBlock, progress.HighestBlock))
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

func (c *Chain) QueryLatestHeight(ctx context.Context) (clienttypes.Height, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return clienttypes.Height{}, errorsmod.Wrapf(coreerrors.ErrNetwork, "block number: %v", err)
	}
	return clienttypes.NewHeight(c.config.Revision, n), nil
}

// BuildClientState fetches the block at height and builds a client state
// trusting the validator set of its snapshot.
func (c *Chain) BuildClientState(ctx context.Context, height clienttypes.Height) (*wasm.ClientState, error) {
	block, err := c.light.Fetch(ctx, height)
	if err != nil {
		return nil, err
	}
	native := &ClientState{
		ChainID:      c.config.ChainID,
		Epoch:        c.config.Epoch,
		Validators:   block.Snapshot.Validators,
		LatestHeight: block.Number(),
	}
	data, err := native.Marshal()
	if err != nil {
		return nil, err
	}
	return &wasm.ClientState{
		Data:         data,
		CodeID:       c.codeID,
		ChainID:      c.config.ChainID,
		LatestHeight: clienttypes.NewHeight(c.config.Revision, block.Number()),
	}, nil
}

func (c *Chain) BuildConsensusState(ctx context.Context, height clienttypes.Height) (*wasm.ConsensusState, error) {
	block, err := c.light.Fetch(ctx, height)
	if err != nil {
		return nil, err
	}
	return c.buildConsensusState(block)
}

func (c *Chain) buildConsensusState(block *Block) (*wasm.ConsensusState, error) {
	native := &ConsensusState{
		Number:     block.Number(),
		Timestamp:  block.Header.Time,
		Root:       block.Header.Root,
		Validators: block.Snapshot.Validators,
	}
	data, err := native.Marshal()
	if err != nil {
		return nil, err
	}
	return &wasm.ConsensusState{
		Data:      data,
		CodeID:    c.codeID,
		Timestamp: native.Timestamp,
		Root:      commitmenttypes.NewMerkleRoot(native.Root.Bytes()),
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
	logger.Info("light client initialized", "height", header.Height.String(), "validators", len(block.Snapshot.Validators))
	return nil
}

func (c *Chain) InitEventMonitor(ctx context.Context) (<-chan *core.EventBatchOrError, core.EventMonitor, error) {
	sub, err := newHeadSubscription(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	h, out := monitor.Start(c.rt, c.ID(), sub)
	if err := c.monitors.Replace(ctx, h); err != nil {
		GetChainLogger().WithChainID(c.ID()).Error("failed to stop the previous event monitor", err)
	}
	return out, h, nil
}

func (c *Chain) Shutdown(ctx context.Context) error {
	defer c.rpc.Close()
	return errors.Join(c.monitors.Shutdown(ctx), c.store.Close())
}

// Snapshots returns the validator snapshots at heights.
func (c *Chain) Snapshots(ctx context.Context, heights ...uint64) ([]*Snapshot, error) {
	return (&adapter{chain: c}).FetchSnapshots(ctx, heights)
}
