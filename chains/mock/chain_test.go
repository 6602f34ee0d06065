package mock_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-wasm-relayer/chains/mock"
	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

const testMnemonic = "math razor capable expose worth grape metal sunset metal sudden usage scheme"

func newChain(t *testing.T, rt *core.Runtime, blocks int) *mock.Chain {
	cfg := mock.ChainConfig{
		ChainID:      "mock0",
		CodeID:       "c0de",
		Key:          "relayer",
		PollInterval: "5ms",
	}
	require.NoError(t, cfg.Validate())
	c, err := mock.NewChain(rt, cfg)
	require.NoError(t, err)
	for i := 0; i < blocks; i++ {
		c.AddBlock(uint64(i+1) * uint64(time.Second))
	}
	return c
}

func TestConfigValidate(t *testing.T) {
	err := mock.ChainConfig{CodeID: "zz", PollInterval: "soon"}.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "chain_id")
	require.Contains(t, err.Error(), "key")
	require.Contains(t, err.Error(), "code_id")
	require.Contains(t, err.Error(), "poll_interval")
}

func TestBuildStatesAndHeaders(t *testing.T) {
	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()
	c := newChain(t, rt, 5)
	ctx := context.TODO()

	cs, err := c.BuildClientState(ctx, clienttypes.NewHeight(0, 1))
	require.NoError(t, err)
	require.Equal(t, clienttypes.NewHeight(0, 1), cs.LatestHeight)
	require.Equal(t, []byte{0xc0, 0xde}, cs.CodeID)

	family, _, err := c.Registry().Decode(cs)
	require.NoError(t, err)
	require.Equal(t, mock.Family, family)

	cons, err := c.BuildConsensusState(ctx, clienttypes.NewHeight(0, 3))
	require.NoError(t, err)
	require.Equal(t, uint64(3), cons.Timestamp)
	require.False(t, cons.Root.Empty())

	target, supporting, err := c.BuildHeader(ctx, clienttypes.NewHeight(0, 1), clienttypes.NewHeight(0, 4), cs)
	require.NoError(t, err)
	require.Equal(t, clienttypes.NewHeight(0, 4), target.Height)
	require.Len(t, supporting, 2)
	require.Equal(t, clienttypes.NewHeight(0, 2), supporting[0].Height)
	require.Equal(t, clienttypes.NewHeight(0, 3), supporting[1].Height)

	_, _, err = c.BuildHeader(ctx, clienttypes.NewHeight(0, 1), clienttypes.NewHeight(0, 9), cs)
	require.ErrorIs(t, err, coreerrors.ErrNotFound)

	_, _, err = c.BuildHeader(ctx, clienttypes.NewHeight(1, 1), clienttypes.NewHeight(2, 4), cs)
	require.ErrorIs(t, err, coreerrors.ErrRevisionMismatch)
}

func TestSubmitAndQuery(t *testing.T) {
	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()
	c := newChain(t, rt, 2)
	ctx := context.TODO()

	cs, err := c.BuildClientState(ctx, clienttypes.NewHeight(0, 2))
	require.NoError(t, err)
	cons, err := c.BuildConsensusState(ctx, clienttypes.NewHeight(0, 2))
	require.NoError(t, err)

	anyCS, err := wasm.PackClientState(cs)
	require.NoError(t, err)
	msg, err := codectypes.NewAnyWithValue(&clienttypes.MsgCreateClient{
		ClientState:    anyCS,
		ConsensusState: wasm.PackConsensusState(cons),
		Signer:         "relayer",
	})
	require.NoError(t, err)

	events, err := c.SendMessagesAndWaitCommit(ctx, []*codectypes.Any{msg})
	require.NoError(t, err)
	require.Len(t, events, 1)
	created, ok := events[0].(*core.EventCreateClient)
	require.True(t, ok)
	require.Equal(t, "08-wasm-0", created.ClientID)

	latest, err := c.QueryLatestHeight(ctx)
	require.NoError(t, err)
	require.Equal(t, clienttypes.NewHeight(0, 3), latest)

	qctx := core.NewQueryContext(ctx, latest)
	got, err := c.QueryClientState(qctx, "08-wasm-0")
	require.NoError(t, err)
	require.True(t, cs.Equal(got))
	gotCons, err := c.QueryConsensusState(qctx, "08-wasm-0", cs.LatestHeight)
	require.NoError(t, err)
	require.True(t, cons.Equal(gotCons))

	_, err = c.QueryClientState(qctx, "08-wasm-1")
	require.ErrorIs(t, err, coreerrors.ErrNotFound)
	_, err = c.QueryConnection(qctx, "connection-0")
	require.ErrorIs(t, err, coreerrors.ErrNotFound)
	_, err = c.QueryUpgradedClientState(qctx)
	require.ErrorIs(t, err, coreerrors.ErrNotFound)

	c.SetChannel("transfer", "channel-0", &chantypes.Channel{State: chantypes.OPEN})
	ch, err := c.QueryChannel(qctx, "transfer", "channel-0")
	require.NoError(t, err)
	require.Equal(t, chantypes.OPEN, ch.State)

	c.SetPacketCommitment("transfer", "channel-0", 1, []byte{0x01})
	commitment, err := c.QueryPacketCommitment(qctx, "transfer", "channel-0", 1)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, commitment)

	prefix, err := c.QueryCommitmentPrefix()
	require.NoError(t, err)
	require.Equal(t, []byte("ibc"), prefix.Bytes())

	clients, err := c.QueryClients(qctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	require.Equal(t, "08-wasm-0", clients[0].ClientID)
	require.True(t, cs.Equal(clients[0].ClientState))

	states, err := c.QueryConsensusStates(qctx, "08-wasm-0")
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Equal(t, cs.LatestHeight, states[0].Height)
	require.True(t, cons.Equal(states[0].ConsensusState))
	_, err = c.QueryConsensusStates(qctx, "08-wasm-1")
	require.ErrorIs(t, err, coreerrors.ErrNotFound)

	_, err = c.QueryClientConnections(qctx, "08-wasm-0")
	require.ErrorIs(t, err, coreerrors.ErrNotFound)
	c.SetConnection("connection-1", &conntypes.ConnectionEnd{ClientId: "08-wasm-0"})
	c.SetConnection("connection-0", &conntypes.ConnectionEnd{ClientId: "08-wasm-0"})
	c.SetConnection("connection-2", &conntypes.ConnectionEnd{ClientId: "08-wasm-5"})
	conns, err := c.QueryClientConnections(qctx, "08-wasm-0")
	require.NoError(t, err)
	require.Equal(t, []string{"connection-0", "connection-1"}, conns)
}

func TestSubmitUnknownMessage(t *testing.T) {
	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()
	c := newChain(t, rt, 1)

	msg, err := codectypes.NewAnyWithValue(&chantypes.MsgTimeout{})
	require.NoError(t, err)

	_, err = c.SendMessagesAndWaitCommit(context.TODO(), []*codectypes.Any{msg})
	require.ErrorIs(t, err, coreerrors.ErrUnknownMessageType)
	_, err = c.SendMessagesAndWaitCheckTx(context.TODO(), []*codectypes.Any{msg})
	require.ErrorIs(t, err, coreerrors.ErrUnknownMessageType)

	// nothing was included
	latest, err := c.QueryLatestHeight(context.TODO())
	require.NoError(t, err)
	require.Equal(t, clienttypes.NewHeight(0, 1), latest)
}

func TestHealthCheck(t *testing.T) {
	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()

	c := newChain(t, rt, 0)
	require.False(t, c.HealthCheck(context.TODO()).IsHealthy())

	c.AddBlock(1)
	require.True(t, c.HealthCheck(context.TODO()).IsHealthy())

	c.SetUnreachable(errors.New("connection refused"))
	h := c.HealthCheck(context.TODO())
	require.Equal(t, core.Unhealthy, h.Status)
	require.Contains(t, h.Reason, "connection refused")

	_, err := c.QueryLatestHeight(context.TODO())
	require.ErrorIs(t, err, coreerrors.ErrNetwork)
}

func TestKeys(t *testing.T) {
	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()
	c := newChain(t, rt, 1)

	_, err := c.GetKey(context.TODO())
	require.ErrorIs(t, err, coreerrors.ErrNotFound)

	added, err := c.Keybase().AddKey("relayer", testMnemonic)
	require.NoError(t, err)
	addr, err := c.GetSigner(context.TODO())
	require.NoError(t, err)
	require.Equal(t, added.Address, addr)
}

func TestCheckMisbehaviour(t *testing.T) {
	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()
	c := newChain(t, rt, 3)
	ctx := context.TODO()

	cs, err := c.BuildClientState(ctx, clienttypes.NewHeight(0, 1))
	require.NoError(t, err)
	canonical, _, err := c.BuildHeader(ctx, clienttypes.NewHeight(0, 1), clienttypes.NewHeight(0, 2), cs)
	require.NoError(t, err)

	evidence, err := c.CheckMisbehaviour(ctx, &core.EventUpdateClient{ClientID: "08-wasm-0", Header: canonical}, cs)
	require.NoError(t, err)
	require.Nil(t, evidence)

	forged, err := (&mockHeader{height: canonical.Height, timestamp: 42}).wrap()
	require.NoError(t, err)
	evidence, err = c.CheckMisbehaviour(ctx, &core.EventUpdateClient{ClientID: "08-wasm-0", Header: forged}, cs)
	require.NoError(t, err)
	require.NotNil(t, evidence)
	require.True(t, canonical.Equal(evidence.Canonical))
	require.True(t, forged.Equal(evidence.Conflicting))
}

func TestInitLightClientAndMonitor(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()
	c := newChain(t, rt, 2)
	ctx := context.TODO()

	require.NoError(t, c.InitLightClient(ctx))

	out, h, err := c.InitEventMonitor(ctx)
	require.NoError(t, err)

	c.AddBlock(uint64(3 * time.Second))
	item := <-out
	require.NoError(t, item.Error)
	require.Equal(t, clienttypes.NewHeight(0, 3), item.Batch.Height)

	require.NoError(t, h.Shutdown(ctx))
	for range out {
		t.Fatal("event published after shutdown")
	}
	require.NoError(t, c.Shutdown(ctx))
}

func TestLoadBlocks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocks.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"height":5,"timestamp":5000000000}
{"height":6,"timestamp":6000000000}

{"height":7,"timestamp":7000000000}
`), 0600))

	rt := core.NewRuntime(context.Background(), 0)
	defer rt.Close()
	ep, err := mock.ChainConfig{ChainID: "mock0", CodeID: "c0de", Key: "relayer", BlocksFile: "blocks.jsonl"}.Build(rt, dir)
	require.NoError(t, err)

	latest, err := ep.QueryLatestHeight(context.TODO())
	require.NoError(t, err)
	require.Equal(t, clienttypes.NewHeight(0, 7), latest)

	cs, err := ep.BuildClientState(context.TODO(), clienttypes.NewHeight(0, 0))
	require.NoError(t, err)
	require.Equal(t, clienttypes.NewHeight(0, 5), cs.LatestHeight)
}
