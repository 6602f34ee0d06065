package tendermint

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/cometbft/cometbft/crypto/tmhash"
	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	cmtversion "github.com/cometbft/cometbft/proto/tendermint/version"
	rpcclient "github.com/cometbft/cometbft/rpc/client"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	tmtypes "github.com/cometbft/cometbft/types"
	"github.com/cometbft/cometbft/version"
	proto "github.com/cosmos/gogoproto/proto"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	lightclient "github.com/hyperledger-labs/yui-wasm-relayer/light"
	"github.com/hyperledger-labs/yui-wasm-relayer/signer"
)

const testCodeID = "c0ffee"

// fakeRPC serves a fixed chain of signed headers. Methods that are not
// overridden panic through the nil embedded client.
type fakeRPC struct {
	rpcclient.Client

	chainID string
	vals    []*tmtypes.Validator

	mu           sync.Mutex
	latest       int64
	headers      map[int64]*tmtypes.SignedHeader
	results      map[int64]*coretypes.ResultBlockResults
	state        map[string][]byte
	rejected     map[string]abci.ResponseQuery
	calls        map[string]int
	running      bool
	stops        int
	events       chan coretypes.ResultEvent
	subscribed   []string
	unsubscribed []string
}

func newFakeRPC(t *testing.T, chainID string, blocks int64, numVals int) *fakeRPC {
	t.Helper()
	f := &fakeRPC{
		chainID:  chainID,
		headers:  make(map[int64]*tmtypes.SignedHeader),
		results:  make(map[int64]*coretypes.ResultBlockResults),
		state:    make(map[string][]byte),
		rejected: make(map[string]abci.ResponseQuery),
		calls:    make(map[string]int),
		events:   make(chan coretypes.ResultEvent, 8),
	}
	for i := 0; i < numVals; i++ {
		f.vals = append(f.vals, tmtypes.NewValidator(ed25519.GenPrivKey().PubKey(), 10))
	}
	for h := int64(1); h <= blocks; h++ {
		f.addBlock(h)
	}
	return f
}

func (f *fakeRPC) addBlock(height int64, events ...abci.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers[height] = f.signedHeader(height, tmhash.Sum([]byte(fmt.Sprintf("app-%d", height))))
	f.results[height] = &coretypes.ResultBlockResults{Height: height, FinalizeBlockEvents: events}
	if height > f.latest {
		f.latest = height
	}
}

func (f *fakeRPC) signedHeader(height int64, appHash []byte) *tmtypes.SignedHeader {
	valSet := tmtypes.NewValidatorSet(f.vals)
	hdr := &tmtypes.Header{
		Version:            cmtversion.Consensus{Block: version.BlockProtocol},
		ChainID:            f.chainID,
		Height:             height,
		Time:               time.Unix(height, 0).UTC(),
		ValidatorsHash:     valSet.Hash(),
		NextValidatorsHash: valSet.Hash(),
		AppHash:            appHash,
		ProposerAddress:    valSet.Proposer.Address,
	}
	return &tmtypes.SignedHeader{
		Header: hdr,
		Commit: &tmtypes.Commit{Height: height, BlockID: tmtypes.BlockID{Hash: hdr.Hash()}},
	}
}

func (f *fakeRPC) setState(store string, key, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[fmt.Sprintf("/store/%s/key:%x", store, key)] = value
}

// setGRPC answers a gRPC-over-ABCI query carrying req with res.
func (f *fakeRPC) setGRPC(t *testing.T, method string, req, res proto.Message) {
	t.Helper()
	reqBz, err := proto.Marshal(req)
	require.NoError(t, err)
	resBz, err := proto.Marshal(res)
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[fmt.Sprintf("%s:%x", method, reqBz)] = resBz
}

// reject makes the node answer a store query with an error code.
func (f *fakeRPC) reject(store string, key []byte, codespace string, code uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected[fmt.Sprintf("/store/%s/key:%x", store, key)] = abci.ResponseQuery{Codespace: codespace, Code: code, Log: "rejected"}
}

func (f *fakeRPC) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRPC) called(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

func (f *fakeRPC) checkHeight(height *int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if height == nil {
		return f.latest, nil
	}
	if *height > f.latest {
		return 0, fmt.Errorf("height %d must be less than or equal to the current blockchain height %d", *height, f.latest)
	}
	return *height, nil
}

func (f *fakeRPC) Status(context.Context) (*coretypes.ResultStatus, error) {
	f.called("Status")
	f.mu.Lock()
	defer f.mu.Unlock()
	return &coretypes.ResultStatus{SyncInfo: coretypes.SyncInfo{
		LatestBlockHeight:   f.latest,
		EarliestBlockHeight: 1,
	}}, nil
}

func (f *fakeRPC) Commit(_ context.Context, height *int64) (*coretypes.ResultCommit, error) {
	f.called("Commit")
	h, err := f.checkHeight(height)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &coretypes.ResultCommit{SignedHeader: *f.headers[h], CanonicalCommit: true}, nil
}

func (f *fakeRPC) Validators(_ context.Context, height *int64, page, perPage *int) (*coretypes.ResultValidators, error) {
	f.called("Validators")
	h, err := f.checkHeight(height)
	if err != nil {
		return nil, err
	}
	start := (*page - 1) * *perPage
	end := start + *perPage
	if end > len(f.vals) {
		end = len(f.vals)
	}
	if start > end {
		start = end
	}
	return &coretypes.ResultValidators{
		BlockHeight: h,
		Validators:  f.vals[start:end],
		Count:       end - start,
		Total:       len(f.vals),
	}, nil
}

func (f *fakeRPC) BlockResults(_ context.Context, height *int64) (*coretypes.ResultBlockResults, error) {
	f.called("BlockResults")
	h, err := f.checkHeight(height)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[h], nil
}

func (f *fakeRPC) ABCIQueryWithOptions(_ context.Context, path string, data cmtbytes.HexBytes, opts rpcclient.ABCIQueryOptions) (*coretypes.ResultABCIQuery, error) {
	f.called("ABCIQuery")
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s:%x", path, []byte(data))
	if res, ok := f.rejected[key]; ok {
		return &coretypes.ResultABCIQuery{Response: res}, nil
	}
	value := f.state[key]
	return &coretypes.ResultABCIQuery{Response: abci.ResponseQuery{Value: value, Height: opts.Height}}, nil
}

func (f *fakeRPC) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeRPC) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	return nil
}

func (f *fakeRPC) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.stops++
	return nil
}

func (f *fakeRPC) Subscribe(_ context.Context, subscriber, query string, _ ...int) (<-chan coretypes.ResultEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, subscriber)
	return f.events, nil
}

func (f *fakeRPC) UnsubscribeAll(_ context.Context, subscriber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, subscriber)
	return nil
}

func (f *fakeRPC) notifyNewBlock(height int64) {
	f.mu.Lock()
	hdr := f.headers[height].Header
	f.mu.Unlock()
	f.events <- coretypes.ResultEvent{
		Query: tmtypes.EventQueryNewBlock.String(),
		Data:  tmtypes.EventDataNewBlock{Block: &tmtypes.Block{Header: *hdr}},
	}
}

func testConfig(chainID string) ChainConfig {
	return ChainConfig{
		Key:                  "relayer",
		ChainID:              chainID,
		RPCAddr:              "http://localhost:26657",
		AccountPrefix:        "cosmos",
		KeyringBackend:       "memory",
		GasAdjustment:        1.5,
		GasPrices:            "0.025stake",
		AverageBlockTimeMsec: 10,
		MaxRetryForCommit:    3,
		CodeID:               testCodeID,
		TrustingPeriod:       "336h",
		UnbondingPeriod:      "504h",
		MaxClockDrift:        "10s",
	}
}

func newTestChain(t *testing.T, rt *core.Runtime, rpc *fakeRPC, chainID string) *Chain {
	t.Helper()
	cfg := testConfig(chainID)
	require.NoError(t, cfg.Validate())
	cdc := makeCodec()
	c, err := newChain(rt, cfg, t.TempDir(), cdc, rpc, signer.NewMemKeyring(cfg.AccountPrefix, cdc), lightclient.NewMemStore())
	require.NoError(t, err)
	return c
}
