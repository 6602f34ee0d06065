package istanbul

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	lightclient "github.com/hyperledger-labs/yui-wasm-relayer/light"
	"github.com/hyperledger-labs/yui-wasm-relayer/signer"
)

const (
	testCodeID    = "c0ffee"
	testEpoch     = 10
	testChainID   = 1337
	testHostAddr  = "0x00000000000000000000000000000000000000aa"
	testGasPrice  = 7
	testTimestamp = 1_700_000_000
)

// fakeNode is an Istanbul chain served over an in-process RPC server.
type fakeNode struct {
	mu          sync.Mutex
	latest      uint64
	headers     map[uint64]*types.Header
	snapshots   map[uint64]*Snapshot
	state       map[string][]byte
	rawOutput   []byte
	logs        map[uint64][]types.Log
	txLogs      [][]string
	receipts    map[common.Hash]*types.Receipt
	sent        []*types.Transaction
	calls       map[string]int
	syncing     bool
	notifier    *rpc.Notifier
	sub         *rpc.Subscription
	subscribed  int
	unsubscribe chan struct{}

	server *rpc.Server
	client *rpc.Client
}

func newFakeNode(t *testing.T, blocks uint64) *fakeNode {
	t.Helper()
	n := &fakeNode{
		headers:     make(map[uint64]*types.Header),
		snapshots:   make(map[uint64]*Snapshot),
		state:       make(map[string][]byte),
		logs:        make(map[uint64][]types.Log),
		receipts:    make(map[common.Hash]*types.Receipt),
		calls:       make(map[string]int),
		unsubscribe: make(chan struct{}, 1),
	}
	for h := uint64(0); h <= blocks; h++ {
		n.addBlock(h)
	}
	n.server = rpc.NewServer()
	require.NoError(t, n.server.RegisterName("eth", &ethService{node: n}))
	require.NoError(t, n.server.RegisterName("istanbul", &istanbulService{node: n}))
	n.client = rpc.DialInProc(n.server)
	t.Cleanup(func() {
		n.client.Close()
		n.server.Stop()
	})
	return n
}

// validatorsOf returns the committee of an epoch.
func validatorsOf(epoch uint64) []common.Address {
	var vals []common.Address
	for i := 0; i < 4; i++ {
		vals = append(vals, common.BytesToAddress(crypto.Keccak256([]byte(fmt.Sprintf("validator-%d-%d", epoch, i)))))
	}
	return vals
}

func (n *fakeNode) addBlock(height uint64, events ...[]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	hdr := &types.Header{
		UncleHash:   types.EmptyUncleHash,
		Root:        crypto.Keccak256Hash([]byte(fmt.Sprintf("state-%d", height))),
		TxHash:      types.EmptyTxsHash,
		ReceiptHash: types.EmptyReceiptsHash,
		Difficulty:  big.NewInt(1),
		Number:      new(big.Int).SetUint64(height),
		GasLimit:    8_000_000,
		Time:        testTimestamp + height,
		Extra:       []byte("istanbul"),
	}
	if parent, ok := n.headers[height-1]; ok && height > 0 {
		hdr.ParentHash = parent.Hash()
	}
	n.headers[height] = hdr
	n.snapshots[height] = &Snapshot{
		Epoch:      testEpoch,
		Number:     height,
		Hash:       hdr.Hash(),
		Validators: validatorsOf(snapshotEpoch(height, testEpoch)),
	}
	for i, ev := range events {
		n.logs[height] = append(n.logs[height], ibcLog(height, uint(i), ev))
	}
	if height > n.latest {
		n.latest = height
	}
}

// ibcLog builds an IBCEvent log from a type followed by key/value pairs.
func ibcLog(height uint64, index uint, ev []string) types.Log {
	var keys, values []string
	for i := 1; i+1 < len(ev); i += 2 {
		keys = append(keys, ev[i])
		values = append(values, ev[i+1])
	}
	data, err := HostABI.Events[eventIBC].Inputs.Pack(ev[0], keys, values)
	if err != nil {
		panic(err)
	}
	return types.Log{
		Address:     common.HexToAddress(testHostAddr),
		Topics:      []common.Hash{HostABI.Events[eventIBC].ID},
		Data:        data,
		BlockNumber: height,
		TxHash:      crypto.Keccak256Hash([]byte(fmt.Sprintf("tx-%d-%d", height, index))),
		Index:       index,
	}
}

func (n *fakeNode) setSnapshotValidators(height uint64, vals []common.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots[height].Validators = vals
}

func (n *fakeNode) setState(path string, key, value []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state[fmt.Sprintf("%s/%x", path, key)] = value
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *fakeNode) called(method string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[method]++
}

func (n *fakeNode) notifyHead(height uint64) error {
	n.mu.Lock()
	notifier, sub, hdr := n.notifier, n.sub, n.headers[height]
	n.mu.Unlock()
	if notifier == nil {
		return fmt.Errorf("no subscriber")
	}
	return notifier.Notify(sub.ID, hdr)
}

type ethService struct {
	node *fakeNode
}

func (s *ethService) BlockNumber() hexutil.Uint64 {
	s.node.called("eth_blockNumber")
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	return hexutil.Uint64(s.node.latest)
}

func (s *ethService) Syncing() (any, error) {
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	if !s.node.syncing {
		return false, nil
	}
	return map[string]hexutil.Uint64{
		"startingBlock": 0,
		"currentBlock":  hexutil.Uint64(s.node.latest),
		"highestBlock":  hexutil.Uint64(s.node.latest + 100),
	}, nil
}

func (s *ethService) GetBlockByNumber(number rpc.BlockNumber, _ bool) (*types.Header, error) {
	s.node.called("eth_getBlockByNumber")
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	h := uint64(number)
	if number < 0 {
		h = s.node.latest
	}
	return s.node.headers[h], nil
}

type callArgs struct {
	To    *common.Address `json:"to"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (s *ethService) Call(args callArgs, _ rpc.BlockNumber) (hexutil.Bytes, error) {
	s.node.called("eth_call")
	input := args.Input
	if input == nil {
		input = args.Data
	}
	if input == nil || len(*input) < 4 {
		return nil, fmt.Errorf("no input")
	}
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	if s.node.rawOutput != nil {
		return s.node.rawOutput, nil
	}
	method := HostABI.Methods[methodGetRawState]
	in, err := method.Inputs.Unpack((*input)[4:])
	if err != nil {
		return nil, err
	}
	value, found := s.node.state[fmt.Sprintf("%s/%x", in[0].(string), in[1].([]byte))]
	if value == nil {
		value = []byte{}
	}
	return method.Outputs.Pack(value, found)
}

func (s *ethService) GetTransactionCount(_ common.Address, _ rpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	return hexutil.Uint64(len(s.node.sent)), nil
}

func (s *ethService) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(testGasPrice))
}

// SendRawTransaction includes the transaction in a new block. The events
// queued with txLogs are emitted by the first transaction.
func (s *ethService) SendRawTransaction(input hexutil.Bytes) (common.Hash, error) {
	s.node.called("eth_sendRawTransaction")
	var tx types.Transaction
	if err := tx.UnmarshalBinary(input); err != nil {
		return common.Hash{}, err
	}
	s.node.mu.Lock()
	height := s.node.latest + 1
	var logs []*types.Log
	for i, ev := range s.node.txLogs {
		l := ibcLog(height, uint(i), ev)
		l.TxHash = tx.Hash()
		logs = append(logs, &l)
	}
	s.node.txLogs = nil
	s.node.sent = append(s.node.sent, &tx)
	s.node.mu.Unlock()

	s.node.addBlock(height)

	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	if logs == nil {
		logs = []*types.Log{}
	}
	s.node.receipts[tx.Hash()] = &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21000,
		GasUsed:           21000,
		Logs:              logs,
		TxHash:            tx.Hash(),
		BlockHash:         s.node.headers[height].Hash(),
		BlockNumber:       new(big.Int).SetUint64(height),
	}
	return tx.Hash(), nil
}

func (s *ethService) GetTransactionReceipt(hash common.Hash) (*types.Receipt, error) {
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	return s.node.receipts[hash], nil
}

type filterArgs struct {
	FromBlock rpc.BlockNumber  `json:"fromBlock"`
	ToBlock   rpc.BlockNumber  `json:"toBlock"`
	Address   []common.Address `json:"address"`
}

func (s *ethService) GetLogs(args filterArgs) ([]types.Log, error) {
	s.node.called("eth_getLogs")
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	logs := []types.Log{}
	for h := uint64(args.FromBlock); h <= uint64(args.ToBlock); h++ {
		logs = append(logs, s.node.logs[h]...)
	}
	return logs, nil
}

func (s *ethService) NewHeads(ctx context.Context) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return nil, rpc.ErrNotificationsUnsupported
	}
	sub := notifier.CreateSubscription()
	s.node.mu.Lock()
	s.node.notifier, s.node.sub = notifier, sub
	s.node.subscribed++
	s.node.mu.Unlock()
	go func() {
		<-sub.Err()
		s.node.unsubscribe <- struct{}{}
	}()
	return sub, nil
}

type istanbulService struct {
	node *fakeNode
}

func (s *istanbulService) GetSnapshot(number rpc.BlockNumber) (*Snapshot, error) {
	s.node.called("istanbul_getSnapshot")
	s.node.mu.Lock()
	defer s.node.mu.Unlock()
	snap, ok := s.node.snapshots[uint64(number)]
	if !ok {
		return nil, nil
	}
	cp := *snap
	return &cp, nil
}

func testConfig(key string) ChainConfig {
	return ChainConfig{
		ChainID:              "istanbul-0",
		EthChainID:           testChainID,
		RPCAddr:              "ws://localhost:8546",
		IBCHostAddress:       testHostAddr,
		Key:                  key,
		KeystorePassphrase:   "secret",
		Epoch:                testEpoch,
		GasLimit:             1_000_000,
		AverageBlockTimeMsec: 10,
		MaxRetryForCommit:    5,
		CodeID:               testCodeID,
	}
}

func newTestChain(t *testing.T, rt *core.Runtime, node *fakeNode, opts ...func(*ChainConfig)) *Chain {
	t.Helper()
	keys := signer.NewEthKeystore(t.TempDir(), "secret")
	entropy, err := bip39.NewEntropy(256)
	require.NoError(t, err)
	mnemonic, err := bip39.NewMnemonic(entropy)
	require.NoError(t, err)
	key, err := keys.AddKey("relayer", mnemonic)
	require.NoError(t, err)

	cfg := testConfig(key.Address)
	for _, opt := range opts {
		opt(&cfg)
	}
	require.NoError(t, cfg.Validate())
	c, err := newChain(rt, cfg, t.TempDir(), node.client, keys, lightclient.NewMemStore())
	require.NoError(t, err)
	return c
}
