package istanbul

import (
	"context"
	"fmt"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/avast/retry-go"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

var rtyErr = retry.LastErrorOnly(true)

// txSubmitter sends every message to handleMessage of the host contract in
// its own transaction.
type txSubmitter struct {
	chain *Chain
}

var _ core.Submitter = (*txSubmitter)(nil)

func (s *txSubmitter) CheckTx(ctx context.Context, msgs []*codectypes.Any) ([]*core.TxResponse, error) {
	txs, err := s.chain.sendMsgs(ctx, msgs)
	if err != nil {
		return nil, err
	}
	res := make([]*core.TxResponse, len(txs))
	for i, tx := range txs {
		res[i] = &core.TxResponse{TxHash: tx.Hash().Hex()}
	}
	return res, nil
}

func (s *txSubmitter) Commit(ctx context.Context, msgs []*codectypes.Any) ([]*core.TxResponse, error) {
	txs, err := s.chain.sendMsgs(ctx, msgs)
	if err != nil {
		return nil, err
	}
	res := make([]*core.TxResponse, len(txs))
	for i, tx := range txs {
		receipt, err := s.chain.waitForReceipt(ctx, tx.Hash())
		if err != nil {
			return nil, err
		}
		resp := &core.TxResponse{
			TxHash: tx.Hash().Hex(),
			Height: clienttypes.NewHeight(s.chain.config.Revision, receipt.BlockNumber.Uint64()),
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			resp.Code = 1
			resp.Log = "execution reverted"
			s.chain.logFailedTx(msgs[i], resp)
			return nil, fmt.Errorf("tx %s reverted in block %d", resp.TxHash, receipt.BlockNumber)
		}
		resp.Events, err = s.chain.parseLogs(receipt.Logs)
		if err != nil {
			return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "tx %s: %v", resp.TxHash, err)
		}
		s.chain.logSuccessTx(msgs[i], resp)
		res[i] = resp
	}
	return res, nil
}

// sendMsgs broadcasts one transaction per message with consecutive nonces.
func (c *Chain) sendMsgs(ctx context.Context, msgs []*codectypes.Any) ([]*types.Transaction, error) {
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	txs := make([]*types.Transaction, 0, len(msgs))
	for i, msg := range msgs {
		tx, err := c.host.Transact(opts, methodHandleMessage, msg.TypeUrl, msg.Value)
		if err != nil {
			return nil, rpcError(err, "msgs[%d] %s", i, msg.TypeUrl)
		}
		txs = append(txs, tx)
		opts.Nonce = new(big.Int).Add(opts.Nonce, big.NewInt(1))
	}
	return txs, nil
}

// transactOpts prepares legacy transaction options for the relayer account.
// Transactions are signed with the keystore passphrase so the account never
// needs to be unlocked.
func (c *Chain) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	acc, err := c.keys.Account(c.config.Key)
	if err != nil {
		return nil, err
	}
	nonce, err := c.eth.PendingNonceAt(ctx, acc.Address)
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "nonce of %s: %v", acc.Address, err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "gas price: %v", err)
	}

	chainID := new(big.Int).SetUint64(c.config.EthChainID)
	ks, passphrase := c.keys.KeyStore(), c.keys.Passphrase()
	return &bind.TransactOpts{
		From:  acc.Address,
		Nonce: new(big.Int).SetUint64(nonce),
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != acc.Address {
				return nil, bind.ErrNotAuthorized
			}
			return ks.SignTxWithPassphrase(acc, passphrase, tx, chainID)
		},
		Value:    big.NewInt(0),
		GasPrice: gasPrice,
		GasLimit: c.config.GasLimit,
		Context:  ctx,
	}, nil
}

func (c *Chain) waitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	if err := retry.Do(func() error {
		var err error
		receipt, err = c.eth.TransactionReceipt(ctx, hash)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(uint(c.config.MaxRetryForCommit)),
		retry.Delay(c.config.averageBlockTime()),
		rtyErr,
	); err != nil {
		return nil, rpcError(err, "receipt of %s", hash)
	}
	return receipt, nil
}

// parseLogs decodes the IBCEvent logs emitted by the host contract.
func (c *Chain) parseLogs(logs []*types.Log) ([]core.IBCEvent, error) {
	hostAddr := c.config.hostAddress()
	eventID := HostABI.Events[eventIBC].ID
	var events []core.IBCEvent
	for _, l := range logs {
		if l.Removed || l.Address != hostAddr || len(l.Topics) == 0 || l.Topics[0] != eventID {
			continue
		}
		var out struct {
			EventType string
			Keys      []string
			Values    []string
		}
		if err := HostABI.UnpackIntoInterface(&out, eventIBC, l.Data); err != nil {
			return nil, fmt.Errorf("log %d of tx %s: %v", l.Index, l.TxHash, err)
		}
		if len(out.Keys) != len(out.Values) {
			return nil, fmt.Errorf("log %d of tx %s has %d keys and %d values", l.Index, l.TxHash, len(out.Keys), len(out.Values))
		}
		se := sdk.StringEvent{Type: out.EventType}
		for i := range out.Keys {
			se.Attributes = append(se.Attributes, sdk.Attribute{Key: out.Keys[i], Value: out.Values[i]})
		}
		ev, err := core.ParseStringEvent(se)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s event: %w", se.Type, err)
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	return events, nil
}

// blockEvents returns the IBC events the host contract emitted in a block.
func (c *Chain) blockEvents(ctx context.Context, height clienttypes.Height) ([]core.IBCEvent, error) {
	n := new(big.Int).SetUint64(height.RevisionHeight)
	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: n,
		ToBlock:   n,
		Addresses: []common.Address{c.config.hostAddress()},
		Topics:    [][]common.Hash{{HostABI.Events[eventIBC].ID}},
	})
	if err != nil {
		return nil, rpcError(err, "logs at %d", height.RevisionHeight)
	}
	ptrs := make([]*types.Log, len(logs))
	for i := range logs {
		ptrs[i] = &logs[i]
	}
	events, err := c.parseLogs(ptrs)
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "block %d: %v", height.RevisionHeight, err)
	}
	return events, nil
}

func (c *Chain) logFailedTx(msg *codectypes.Any, res *core.TxResponse) {
	GetChainLogger().WithChainID(c.ID()).Error("failed to send msg", fmt.Errorf("tx failed: %s", res.Log),
		"msg_type", msg.TypeUrl,
		"tx_hash", res.TxHash,
		"height", res.Height.String(),
	)
}

func (c *Chain) logSuccessTx(msg *codectypes.Any, res *core.TxResponse) {
	GetChainLogger().WithChainID(c.ID()).Info("successfully sent msg",
		"msg_type", msg.TypeUrl,
		"tx_hash", res.TxHash,
		"height", res.Height.String(),
		"events", len(res.Events),
	)
}
