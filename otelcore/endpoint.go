package otelcore

import (
	"context"
	"fmt"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	"github.com/hyperledger-labs/yui-wasm-relayer/internal/telemetry"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

// Endpoint records a span around every call of the wrapped endpoint.
type Endpoint struct {
	core.ChainEndpoint
	tracer trace.Tracer
}

var _ core.ChainEndpoint = (*Endpoint)(nil)

func NewEndpoint(ep core.ChainEndpoint, tracer trace.Tracer) core.ChainEndpoint {
	return &Endpoint{
		ChainEndpoint: ep,
		tracer:        tracer,
	}
}

func UnwrapEndpoint(ep core.ChainEndpoint) (core.ChainEndpoint, error) {
	e, ok := ep.(*Endpoint)
	if !ok {
		return nil, fmt.Errorf("endpoint type is not %T, but %T", &Endpoint{}, ep)
	}
	return e.ChainEndpoint, nil
}

func (e *Endpoint) start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append(opts, core.WithChainAttributes(e.ID()), core.WithPackage(e.ChainEndpoint))
	return e.tracer.Start(ctx, name, opts...)
}

func (e *Endpoint) startQuery(ctx core.QueryContext, name string, opts ...trace.SpanStartOption) (core.QueryContext, trace.Span) {
	opts = append(opts, core.WithChainAttributes(e.ID()), core.WithPackage(e.ChainEndpoint))
	return core.StartTraceWithQueryContext(e.tracer, ctx, name, opts...)
}

func (e *Endpoint) HealthCheck(ctx context.Context) core.HealthCheck {
	ctx, span := e.start(ctx, "ChainEndpoint.HealthCheck")
	defer span.End()

	h := e.ChainEndpoint.HealthCheck(ctx)
	if !h.IsHealthy() {
		span.SetStatus(codes.Error, h.Reason)
	}
	telemetry.RecordHealth(e.ID(), h.IsHealthy())
	return h
}

func (e *Endpoint) GetSigner(ctx context.Context) (string, error) {
	ctx, span := e.start(ctx, "ChainEndpoint.GetSigner")
	defer span.End()

	signer, err := e.ChainEndpoint.GetSigner(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return signer, err
}

func (e *Endpoint) GetKey(ctx context.Context) (*core.KeyEntry, error) {
	ctx, span := e.start(ctx, "ChainEndpoint.GetKey")
	defer span.End()

	key, err := e.ChainEndpoint.GetKey(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return key, err
}

func (e *Endpoint) SendMessagesAndWaitCommit(ctx context.Context, msgs []*codectypes.Any) ([]core.IBCEvent, error) {
	ctx, span := e.start(ctx, "ChainEndpoint.SendMessagesAndWaitCommit",
		trace.WithAttributes(core.AttributeKeyMsgCount.Int(len(msgs))),
	)
	defer span.End()

	events, err := e.ChainEndpoint.SendMessagesAndWaitCommit(ctx, msgs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return events, err
}

func (e *Endpoint) SendMessagesAndWaitCheckTx(ctx context.Context, msgs []*codectypes.Any) ([]*core.TxResponse, error) {
	ctx, span := e.start(ctx, "ChainEndpoint.SendMessagesAndWaitCheckTx",
		trace.WithAttributes(core.AttributeKeyMsgCount.Int(len(msgs))),
	)
	defer span.End()

	res, err := e.ChainEndpoint.SendMessagesAndWaitCheckTx(ctx, msgs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (e *Endpoint) QueryLatestHeight(ctx context.Context) (clienttypes.Height, error) {
	ctx, span := e.start(ctx, "ChainEndpoint.QueryLatestHeight")
	defer span.End()

	height, err := e.ChainEndpoint.QueryLatestHeight(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return height, err
}

func (e *Endpoint) QueryClientState(ctx core.QueryContext, clientID string) (*wasm.ClientState, error) {
	ctx, span := e.startQuery(ctx, "ChainEndpoint.QueryClientState",
		trace.WithAttributes(core.AttributeKeyClientID.String(clientID)),
	)
	defer span.End()

	cs, err := e.ChainEndpoint.QueryClientState(ctx, clientID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return cs, err
}

func (e *Endpoint) QueryConsensusState(ctx core.QueryContext, clientID string, consensusHeight clienttypes.Height) (*wasm.ConsensusState, error) {
	ctx, span := e.startQuery(ctx, "ChainEndpoint.QueryConsensusState",
		trace.WithAttributes(core.AttributeKeyClientID.String(clientID)),
		core.WithHeightAttributes("consensus", consensusHeight),
	)
	defer span.End()

	cs, err := e.ChainEndpoint.QueryConsensusState(ctx, clientID, consensusHeight)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return cs, err
}

func (e *Endpoint) QueryConnection(ctx core.QueryContext, connectionID string) (*conntypes.ConnectionEnd, error) {
	ctx, span := e.startQuery(ctx, "ChainEndpoint.QueryConnection",
		trace.WithAttributes(core.AttributeKeyConnectionID.String(connectionID)),
	)
	defer span.End()

	conn, err := e.ChainEndpoint.QueryConnection(ctx, connectionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return conn, err
}

func (e *Endpoint) QueryChannel(ctx core.QueryContext, portID, channelID string) (*chantypes.Channel, error) {
	ctx, span := e.startQuery(ctx, "ChainEndpoint.QueryChannel",
		trace.WithAttributes(
			core.AttributeKeyPortID.String(portID),
			core.AttributeKeyChannelID.String(channelID),
		),
	)
	defer span.End()

	ch, err := e.ChainEndpoint.QueryChannel(ctx, portID, channelID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return ch, err
}

func (e *Endpoint) QueryPacketCommitment(ctx core.QueryContext, portID, channelID string, sequence uint64) ([]byte, error) {
	ctx, span := e.startQuery(ctx, "ChainEndpoint.QueryPacketCommitment",
		trace.WithAttributes(
			core.AttributeKeyPortID.String(portID),
			core.AttributeKeyChannelID.String(channelID),
		),
	)
	defer span.End()

	commitment, err := e.ChainEndpoint.QueryPacketCommitment(ctx, portID, channelID, sequence)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return commitment, err
}

func (e *Endpoint) QueryClients(ctx core.QueryContext) ([]*core.IdentifiedClientState, error) {
	ctx, span := e.startQuery(ctx, "ChainEndpoint.QueryClients")
	defer span.End()

	clients, err := e.ChainEndpoint.QueryClients(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return clients, err
}

func (e *Endpoint) QueryConsensusStates(ctx core.QueryContext, clientID string) ([]*core.ConsensusStateWithHeight, error) {
	ctx, span := e.startQuery(ctx, "ChainEndpoint.QueryConsensusStates",
		trace.WithAttributes(core.AttributeKeyClientID.String(clientID)),
	)
	defer span.End()

	states, err := e.ChainEndpoint.QueryConsensusStates(ctx, clientID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return states, err
}

func (e *Endpoint) QueryClientConnections(ctx core.QueryContext, clientID string) ([]string, error) {
	ctx, span := e.startQuery(ctx, "ChainEndpoint.QueryClientConnections",
		trace.WithAttributes(core.AttributeKeyClientID.String(clientID)),
	)
	defer span.End()

	ids, err := e.ChainEndpoint.QueryClientConnections(ctx, clientID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return ids, err
}

func (e *Endpoint) QueryUpgradedClientState(ctx core.QueryContext) (*wasm.ClientState, error) {
	ctx, span := e.startQuery(ctx, "ChainEndpoint.QueryUpgradedClientState")
	defer span.End()

	cs, err := e.ChainEndpoint.QueryUpgradedClientState(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return cs, err
}

func (e *Endpoint) BuildClientState(ctx context.Context, height clienttypes.Height) (*wasm.ClientState, error) {
	ctx, span := e.start(ctx, "ChainEndpoint.BuildClientState", core.WithHeightAttributes("height", height))
	defer span.End()

	cs, err := e.ChainEndpoint.BuildClientState(ctx, height)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return cs, err
}

func (e *Endpoint) BuildConsensusState(ctx context.Context, height clienttypes.Height) (*wasm.ConsensusState, error) {
	ctx, span := e.start(ctx, "ChainEndpoint.BuildConsensusState", core.WithHeightAttributes("height", height))
	defer span.End()

	cs, err := e.ChainEndpoint.BuildConsensusState(ctx, height)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return cs, err
}

func (e *Endpoint) BuildHeader(ctx context.Context, trusted, target clienttypes.Height, cs *wasm.ClientState) (*wasm.Header, []*wasm.Header, error) {
	ctx, span := e.start(ctx, "ChainEndpoint.BuildHeader",
		core.WithHeightAttributes("trusted", trusted),
		core.WithHeightAttributes("target", target),
	)
	defer span.End()

	header, supporting, err := e.ChainEndpoint.BuildHeader(ctx, trusted, target, cs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return header, supporting, err
}

func (e *Endpoint) CheckMisbehaviour(ctx context.Context, ev *core.EventUpdateClient, cs *wasm.ClientState) (*core.MisbehaviourEvidence, error) {
	ctx, span := e.start(ctx, "ChainEndpoint.CheckMisbehaviour")
	defer span.End()

	evidence, err := e.ChainEndpoint.CheckMisbehaviour(ctx, ev, cs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return evidence, err
}

func (e *Endpoint) InitLightClient(ctx context.Context) error {
	ctx, span := e.start(ctx, "ChainEndpoint.InitLightClient")
	defer span.End()

	err := e.ChainEndpoint.InitLightClient(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (e *Endpoint) InitEventMonitor(ctx context.Context) (<-chan *core.EventBatchOrError, core.EventMonitor, error) {
	ctx, span := e.start(ctx, "ChainEndpoint.InitEventMonitor")
	defer span.End()

	out, m, err := e.ChainEndpoint.InitEventMonitor(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return out, m, err
}

func (e *Endpoint) Shutdown(ctx context.Context) error {
	ctx, span := e.start(ctx, "ChainEndpoint.Shutdown")
	defer span.End()

	err := e.ChainEndpoint.Shutdown(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	telemetry.ForgetChain(e.ID())
	return err
}
