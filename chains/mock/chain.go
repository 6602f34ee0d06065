package mock

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	mocktypes "github.com/datachainlab/ibc-mock-client/modules/light-clients/xx-mock/types"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/light"
	"github.com/hyperledger-labs/yui-wasm-relayer/log"
	"github.com/hyperledger-labs/yui-wasm-relayer/monitor"
	"github.com/hyperledger-labs/yui-wasm-relayer/signer"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

const Family = "mock"

// Chain is an in-memory chain. Blocks are appended by AddBlock or by
// submitting messages, and every query is answered from local maps.
type Chain struct {
	config   ChainConfig
	codeID   []byte
	rt       *core.Runtime
	registry *wasm.Registry
	light    *light.Client[*mocktypes.Header]
	keys     *signer.Keyring
	store    *light.Store
	monitors monitor.Slot

	mu              sync.RWMutex
	blocks          map[uint64]*mocktypes.Header
	events          map[uint64][]core.IBCEvent
	first, latest   uint64
	unreachable     error
	nextClientSeq   uint64
	clientStates    map[string]*wasm.ClientState
	consensusStates map[string]map[clienttypes.Height]*wasm.ConsensusState
	connections     map[string]*conntypes.ConnectionEnd
	channels        map[string]*chantypes.Channel
	commitments     map[string][]byte
	upgraded        *wasm.ClientState
}

var _ core.ChainEndpoint = (*Chain)(nil)

func NewChain(rt *core.Runtime, config ChainConfig) (*Chain, error) {
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
		config:          config,
		codeID:          codeID,
		rt:              rt,
		registry:        registry,
		keys:            signer.NewMemKeyring("cosmos", signer.MakeKeyringCodec()),
		store:           light.NewMemStore(),
		blocks:          make(map[uint64]*mocktypes.Header),
		events:          make(map[uint64][]core.IBCEvent),
		clientStates:    make(map[string]*wasm.ClientState),
		consensusStates: make(map[string]map[clienttypes.Height]*wasm.ConsensusState),
		connections:     make(map[string]*conntypes.ConnectionEnd),
		channels:        make(map[string]*chantypes.Channel),
		commitments:     make(map[string][]byte),
	}
	c.light = light.NewClient[*mocktypes.Header](&adapter{chain: c}, registry)
	return c, nil
}

// DecodeClientState decodes the native client state carried by a wrapped client state.
func DecodeClientState(data []byte) (any, error) {
	var cs mocktypes.ClientState
	if err := cs.Unmarshal(data); err != nil {
		return nil, err
	}
	return &cs, nil
}

func (c *Chain) ID() string {
	return c.config.ChainID
}

func (c *Chain) Registry() *wasm.Registry {
	return c.registry
}

func (c *Chain) Light() *light.Client[*mocktypes.Header] {
	return c.light
}

// AddBlock appends a block with the given timestamp in nanoseconds.
func (c *Chain) AddBlock(timestamp uint64, events ...core.IBCEvent) clienttypes.Height {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addBlockLocked(timestamp, events)
}

func (c *Chain) addBlockLocked(timestamp uint64, events []core.IBCEvent) clienttypes.Height {
	h := clienttypes.NewHeight(c.config.Revision, c.latest+1)
	c.blocks[h.RevisionHeight] = &mocktypes.Header{Height: h, Timestamp: timestamp}
	c.events[h.RevisionHeight] = events
	if c.first == 0 {
		c.first = h.RevisionHeight
	}
	c.latest = h.RevisionHeight
	return h
}

type blockLine struct {
	Height    uint64 `json:"height"`
	Timestamp uint64 `json:"timestamp"`
}

// LoadBlocks reads blocks from a file of JSON lines {"height":h,"timestamp":t}.
func (c *Chain) LoadBlocks(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "blocks file: %v", err)
	}
	defer f.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var line blockLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return errorsmod.Wrapf(coreerrors.ErrDecode, "blocks file %s: %v", path, err)
		}
		h := clienttypes.NewHeight(c.config.Revision, line.Height)
		c.blocks[line.Height] = &mocktypes.Header{Height: h, Timestamp: line.Timestamp}
		if c.first == 0 || line.Height < c.first {
			c.first = line.Height
		}
		if line.Height > c.latest {
			c.latest = line.Height
		}
	}
	return scanner.Err()
}

// SetUnreachable makes every RPC fail with err until it is called with nil.
func (c *Chain) SetUnreachable(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unreachable = err
}

func (c *Chain) SetConnection(connectionID string, conn *conntypes.ConnectionEnd) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connections[connectionID] = conn
}

func (c *Chain) SetChannel(portID, channelID string, ch *chantypes.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[portID+"/"+channelID] = ch
}

func (c *Chain) SetPacketCommitment(portID, channelID string, sequence uint64, commitment []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commitments[fmt.Sprintf("%s/%s/%d", portID, channelID, sequence)] = commitment
}

func (c *Chain) SetUpgradedClientState(cs *wasm.ClientState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upgraded = cs
}

func (c *Chain) reachable() error {
	if c.unreachable != nil {
		return errorsmod.Wrapf(coreerrors.ErrNetwork, "chain %s: %v", c.config.ChainID, c.unreachable)
	}
	return nil
}

func (c *Chain) HealthCheck(ctx context.Context) core.HealthCheck {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.reachable(); err != nil {
		return core.NewUnhealthy(err.Error())
	}
	if c.latest == 0 {
		return core.NewUnhealthy("no blocks produced yet")
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

// SendMessagesAndWaitCommit includes msgs in a new block.
func (c *Chain) SendMessagesAndWaitCommit(ctx context.Context, msgs []*codectypes.Any) ([]core.IBCEvent, error) {
	res, err := c.submit(msgs)
	if err != nil {
		return nil, err
	}
	return res.Events, nil
}

func (c *Chain) SendMessagesAndWaitCheckTx(ctx context.Context, msgs []*codectypes.Any) ([]*core.TxResponse, error) {
	res, err := c.submit(msgs)
	if err != nil {
		return nil, err
	}
	return []*core.TxResponse{res}, nil
}

func (c *Chain) submit(msgs []*codectypes.Any) (*core.TxResponse, error) {
	events, err := core.EventsFromMsgs(msgs)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reachable(); err != nil {
		return nil, err
	}
	for i, msg := range msgs {
		if msg.TypeUrl != core.TypeURLCreateClient {
			continue
		}
		var m clienttypes.MsgCreateClient
		if err := m.Unmarshal(msg.Value); err != nil {
			return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "msgs[%d]: %v", i, err)
		}
		cs, err := wasm.UnpackClientState(m.ClientState)
		if err != nil {
			return nil, err
		}
		consState, err := wasm.UnpackConsensusState(m.ConsensusState)
		if err != nil {
			return nil, err
		}
		clientID := clienttypes.FormatClientIdentifier(wasm.ClientType, c.nextClientSeq)
		c.nextClientSeq++
		c.clientStates[clientID] = cs
		c.consensusStates[clientID] = map[clienttypes.Height]*wasm.ConsensusState{cs.LatestHeight: consState}
		if ev, ok := events[i].(*core.EventCreateClient); ok {
			ev.ClientID = clientID
		}
	}

	height := c.addBlockLocked(uint64(time.Now().UnixNano()), events)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%d", c.config.ChainID, height.RevisionHeight)))
	return &core.TxResponse{
		TxHash: hex.EncodeToString(sum[:]),
		Height: height,
		Events: events,
	}, nil
}

func (c *Chain) QueryLatestHeight(ctx context.Context) (clienttypes.Height, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.reachable(); err != nil {
		return clienttypes.Height{}, err
	}
	if c.latest == 0 {
		return clienttypes.Height{}, errorsmod.Wrapf(coreerrors.ErrNotFound, "chain %s has no blocks", c.config.ChainID)
	}
	return clienttypes.NewHeight(c.config.Revision, c.latest), nil
}

func (c *Chain) QueryClientState(ctx core.QueryContext, clientID string) (*wasm.ClientState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.reachable(); err != nil {
		return nil, err
	}
	cs, ok := c.clientStates[clientID]
	if !ok {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "client %s", clientID)
	}
	return cs, nil
}

func (c *Chain) QueryConsensusState(ctx core.QueryContext, clientID string, consensusHeight clienttypes.Height) (*wasm.ConsensusState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.reachable(); err != nil {
		return nil, err
	}
	cs, ok := c.consensusStates[clientID][consensusHeight]
	if !ok {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "consensus state of %s at %s", clientID, consensusHeight)
	}
	return cs, nil
}

func (c *Chain) QueryConnection(ctx core.QueryContext, connectionID string) (*conntypes.ConnectionEnd, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.reachable(); err != nil {
		return nil, err
	}
	conn, ok := c.connections[connectionID]
	if !ok {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "connection %s", connectionID)
	}
	return conn, nil
}

func (c *Chain) QueryChannel(ctx core.QueryContext, portID, channelID string) (*chantypes.Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.reachable(); err != nil {
		return nil, err
	}
	ch, ok := c.channels[portID+"/"+channelID]
	if !ok {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "channel %s/%s", portID, channelID)
	}
	return ch, nil
}

func (c *Chain) QueryPacketCommitment(ctx core.QueryContext, portID, channelID string, sequence uint64) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.reachable(); err != nil {
		return nil, err
	}
	commitment, ok := c.commitments[fmt.Sprintf("%s/%s/%d", portID, channelID, sequence)]
	if !ok {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "packet commitment %s/%s/%d", portID, channelID, sequence)
	}
	return commitment, nil
}

func (c *Chain) QueryCommitmentPrefix() (commitmenttypes.MerklePrefix, error) {
	return commitmenttypes.NewMerklePrefix([]byte(c.config.storePrefix())), nil
}

func (c *Chain) QueryClients(ctx core.QueryContext) ([]*core.IdentifiedClientState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.reachable(); err != nil {
		return nil, err
	}
	clients := make([]*core.IdentifiedClientState, 0, len(c.clientStates))
	for id, cs := range c.clientStates {
		clients = append(clients, &core.IdentifiedClientState{ClientID: id, ClientState: cs})
	}
	slices.SortFunc(clients, func(a, b *core.IdentifiedClientState) int {
		return strings.Compare(a.ClientID, b.ClientID)
	})
	return clients, nil
}

func (c *Chain) QueryConsensusStates(ctx core.QueryContext, clientID string) ([]*core.ConsensusStateWithHeight, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.reachable(); err != nil {
		return nil, err
	}
	if _, ok := c.clientStates[clientID]; !ok {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "client %s", clientID)
	}
	states := make([]*core.ConsensusStateWithHeight, 0, len(c.consensusStates[clientID]))
	for h, cs := range c.consensusStates[clientID] {
		states = append(states, &core.ConsensusStateWithHeight{Height: h, ConsensusState: cs})
	}
	slices.SortFunc(states, func(a, b *core.ConsensusStateWithHeight) int {
		return int(a.Height.Compare(b.Height))
	})
	return states, nil
}

func (c *Chain) QueryClientConnections(ctx core.QueryContext, clientID string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.reachable(); err != nil {
		return nil, err
	}
	var ids []string
	for id, conn := range c.connections {
		if conn.ClientId == clientID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errorsmod.Wrapf(coreerrors.ErrNotFound, "connections of client %s", clientID)
	}
	slices.Sort(ids)
	return ids, nil
}

func (c *Chain) QueryUpgradedClientState(ctx core.QueryContext) (*wasm.ClientState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.reachable(); err != nil {
		return nil, err
	}
	if c.upgraded == nil {
		return nil, errorsmod.Wrap(coreerrors.ErrNotFound, "no upgrade is scheduled")
	}
	return c.upgraded, nil
}

func (c *Chain) BuildClientState(ctx context.Context, height clienttypes.Height) (*wasm.ClientState, error) {
	h, err := c.light.Fetch(ctx, height)
	if err != nil {
		return nil, err
	}
	native := &mocktypes.ClientState{LatestHeight: h.Height}
	data, err := native.Marshal()
	if err != nil {
		return nil, err
	}
	return &wasm.ClientState{
		Data:         data,
		CodeID:       c.codeID,
		ChainID:      c.config.ChainID,
		LatestHeight: h.Height,
	}, nil
}

func (c *Chain) BuildConsensusState(ctx context.Context, height clienttypes.Height) (*wasm.ConsensusState, error) {
	h, err := c.light.Fetch(ctx, height)
	if err != nil {
		return nil, err
	}
	native := &mocktypes.ConsensusState{Timestamp: h.Timestamp}
	data, err := native.Marshal()
	if err != nil {
		return nil, err
	}
	headerBytes, err := h.Marshal()
	if err != nil {
		return nil, err
	}
	root := sha256.Sum256(headerBytes)
	return &wasm.ConsensusState{
		Data:      data,
		CodeID:    c.codeID,
		Timestamp: h.Timestamp / uint64(time.Second),
		Root:      commitmenttypes.NewMerkleRoot(root[:]),
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

func (c *Chain) InitLightClient(ctx context.Context) error {
	first, err := c.light.Fetch(ctx, clienttypes.NewHeight(c.config.Revision, 0))
	if err != nil {
		return err
	}
	header, err := c.light.WrapHeader(first)
	if err != nil {
		return err
	}
	return c.store.SaveAnchor(c.config.ChainID, header)
}

func (c *Chain) InitEventMonitor(ctx context.Context) (<-chan *core.EventBatchOrError, core.EventMonitor, error) {
	from, err := c.QueryLatestHeight(ctx)
	if err != nil {
		return nil, nil, err
	}
	sub := monitor.NewPollSubscription(c.config.ChainID, &heightSource{chain: c}, c.config.pollInterval(), from)
	h, out := monitor.Start(c.rt, c.config.ChainID, sub)
	if err := c.monitors.Replace(ctx, h); err != nil {
		log.GetLogger().WithChainID(c.config.ChainID).WithModule("mock").Error("failed to stop the previous event monitor", err)
	}
	return out, h, nil
}

func (c *Chain) Shutdown(ctx context.Context) error {
	if err := c.monitors.Shutdown(ctx); err != nil {
		return err
	}
	return c.store.Close()
}

type heightSource struct {
	chain *Chain
}

func (s *heightSource) LatestHeight(ctx context.Context) (clienttypes.Height, error) {
	return s.chain.QueryLatestHeight(ctx)
}

func (s *heightSource) EventsAt(ctx context.Context, height clienttypes.Height) ([]core.IBCEvent, error) {
	s.chain.mu.RLock()
	defer s.chain.mu.RUnlock()
	if err := s.chain.reachable(); err != nil {
		return nil, err
	}
	return s.chain.events[height.RevisionHeight], nil
}
