package core

import (
	"context"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"

	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

// ChainEndpoint is the capability set every chain family implements to take
// part in relaying. All methods block until the underlying network calls complete.
type ChainEndpoint interface {
	// ID returns the chain ID
	ID() string

	// HealthCheck reports reachability of the chain. It never fails; problems are
	// reported in the returned value.
	HealthCheck(ctx context.Context) HealthCheck

	// GetSigner returns the address of the configured relayer key
	GetSigner(ctx context.Context) (string, error)

	// GetKey returns the configured relayer key
	GetKey(ctx context.Context) (*KeyEntry, error)

	// Keybase returns the key store of the chain
	Keybase() KeyStore

	// SendMessagesAndWaitCommit submits msgs and waits until they are committed.
	// A message of an unknown type fails the whole batch before anything is sent.
	SendMessagesAndWaitCommit(ctx context.Context, msgs []*codectypes.Any) ([]IBCEvent, error)

	// SendMessagesAndWaitCheckTx submits msgs and returns once they are accepted into the mempool.
	SendMessagesAndWaitCheckTx(ctx context.Context, msgs []*codectypes.Any) ([]*TxResponse, error)

	// QueryLatestHeight returns the latest height of the chain
	QueryLatestHeight(ctx context.Context) (clienttypes.Height, error)

	// QueryCommitmentPrefix returns the store prefix this chain commits IBC state under
	QueryCommitmentPrefix() (commitmenttypes.MerklePrefix, error)

	// QueryClients lists the wasm clients stored on this chain. Clients of other
	// types are skipped.
	QueryClients(ctx QueryContext) ([]*IdentifiedClientState, error)

	// QueryClientState returns the client state stored on this chain at ctx.Height()
	QueryClientState(ctx QueryContext, clientID string) (*wasm.ClientState, error)

	// QueryConsensusState returns the consensus state of a client at consensusHeight
	QueryConsensusState(ctx QueryContext, clientID string, consensusHeight clienttypes.Height) (*wasm.ConsensusState, error)

	// QueryConsensusStates lists every consensus state stored for a client, ordered by height
	QueryConsensusStates(ctx QueryContext, clientID string) ([]*ConsensusStateWithHeight, error)

	// QueryClientConnections returns the IDs of the connections built on a client
	QueryClientConnections(ctx QueryContext, clientID string) ([]string, error)

	// QueryConnection returns the connection end
	QueryConnection(ctx QueryContext, connectionID string) (*conntypes.ConnectionEnd, error)

	// QueryChannel returns the channel end
	QueryChannel(ctx QueryContext, portID, channelID string) (*chantypes.Channel, error)

	// QueryPacketCommitment returns the packet commitment of a sent packet
	QueryPacketCommitment(ctx QueryContext, portID, channelID string, sequence uint64) ([]byte, error)

	// QueryUpgradedClientState returns the client state scheduled by a pending upgrade
	QueryUpgradedClientState(ctx QueryContext) (*wasm.ClientState, error)

	// BuildClientState builds a wrapped client state of this chain at height
	BuildClientState(ctx context.Context, height clienttypes.Height) (*wasm.ClientState, error)

	// BuildConsensusState builds a wrapped consensus state of this chain at height
	BuildConsensusState(ctx context.Context, height clienttypes.Height) (*wasm.ConsensusState, error)

	// BuildHeader returns the target header and the supporting headers that move
	// a counterparty client from trusted to target.
	BuildHeader(ctx context.Context, trusted, target clienttypes.Height, cs *wasm.ClientState) (*wasm.Header, []*wasm.Header, error)

	// CheckMisbehaviour inspects an update on the counterparty and returns evidence
	// if the submitted header conflicts with this chain. A nil result with a nil
	// error means no evidence was found.
	CheckMisbehaviour(ctx context.Context, ev *EventUpdateClient, cs *wasm.ClientState) (*MisbehaviourEvidence, error)

	// InitLightClient records the anchor block the light client starts from
	InitLightClient(ctx context.Context) error

	// InitEventMonitor starts the event monitor of the chain. A running monitor is
	// shut down and replaced.
	InitEventMonitor(ctx context.Context) (<-chan *EventBatchOrError, EventMonitor, error)

	// Shutdown stops the event monitor and releases RPC connections
	Shutdown(ctx context.Context) error
}

type IdentifiedClientState struct {
	ClientID    string
	ClientState *wasm.ClientState
}

type ConsensusStateWithHeight struct {
	Height         clienttypes.Height
	ConsensusState *wasm.ConsensusState
}

type HealthStatus int

const (
	Healthy HealthStatus = iota
	Unhealthy
)

func (s HealthStatus) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

type HealthCheck struct {
	Status HealthStatus
	Reason string
}

func NewHealthy() HealthCheck {
	return HealthCheck{Status: Healthy}
}

func NewUnhealthy(reason string) HealthCheck {
	return HealthCheck{Status: Unhealthy, Reason: reason}
}

func (h HealthCheck) IsHealthy() bool {
	return h.Status == Healthy
}

// TxResponse is the result of submitting messages in one transaction.
type TxResponse struct {
	TxHash string
	Height clienttypes.Height
	Code   uint32
	Log    string
	Events []IBCEvent
}

// Submitter signs and broadcasts messages for an endpoint.
type Submitter interface {
	// CheckTx broadcasts msgs and returns once they pass mempool admission
	CheckTx(ctx context.Context, msgs []*codectypes.Any) ([]*TxResponse, error)
	// Commit broadcasts msgs and waits for their inclusion in a block
	Commit(ctx context.Context, msgs []*codectypes.Any) ([]*TxResponse, error)
}

// EventBatch groups the events observed at one height.
type EventBatch struct {
	ChainID string
	Height  clienttypes.Height
	Events  []IBCEvent
}

type EventBatchOrError struct {
	Batch *EventBatch
	Error error
}

// EventMonitor controls a running event monitor.
type EventMonitor interface {
	// Shutdown asks the monitor to stop and waits for it. When ctx expires first
	// the monitor is aborted.
	Shutdown(ctx context.Context) error
	// Done is closed when the monitor has stopped and released its subscription
	Done() <-chan struct{}
}

// KeyEntry is a named key in a KeyStore.
type KeyEntry struct {
	Name    string
	Address string
	PubKey  []byte
}

// KeyStore gives access to the relayer keys of a chain.
type KeyStore interface {
	// GetKey returns the key named name, or ErrNotFound
	GetKey(name string) (*KeyEntry, error)
	// AddKey imports a key from a mnemonic
	AddKey(name, mnemonic string) (*KeyEntry, error)
	// ListKeys returns every key in the store
	ListKeys() ([]*KeyEntry, error)
}

// QueryContext carries the height at which a query is anchored.
type QueryContext interface {
	Context() context.Context
	Height() clienttypes.Height
}

type queryContext struct {
	ctx    context.Context
	height clienttypes.Height
}

var _ QueryContext = (*queryContext)(nil)

// NewQueryContext returns a new context for querying states at height
func NewQueryContext(ctx context.Context, height clienttypes.Height) QueryContext {
	return queryContext{ctx: ctx, height: height}
}

func (qc queryContext) Context() context.Context {
	return qc.ctx
}

func (qc queryContext) Height() clienttypes.Height {
	return qc.height
}
