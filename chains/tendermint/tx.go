package tendermint

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/avast/retry-go"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	sdkCtx "github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	authtx "github.com/cosmos/cosmos-sdk/x/auth/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

var rtyErr = retry.LastErrorOnly(true)

// txSubmitter signs with the configured key and broadcasts in sync mode.
type txSubmitter struct {
	chain *Chain
}

var _ core.Submitter = (*txSubmitter)(nil)

func (s *txSubmitter) CheckTx(ctx context.Context, msgs []*codectypes.Any) ([]*core.TxResponse, error) {
	res, err := s.chain.rawSendMsgs(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return []*core.TxResponse{{
		TxHash: res.TxHash,
		Code:   res.Code,
		Log:    res.RawLog,
	}}, nil
}

func (s *txSubmitter) Commit(ctx context.Context, msgs []*codectypes.Any) ([]*core.TxResponse, error) {
	res, err := s.chain.rawSendMsgs(ctx, msgs)
	if err != nil {
		return nil, err
	} else if res.Code != 0 {
		// CheckTx failed
		return nil, fmt.Errorf("CheckTx failed: %v", errorsmod.ABCIError(res.Codespace, res.Code, res.RawLog))
	}

	// wait for tx being committed
	resTx, err := s.chain.waitForCommit(ctx, res.TxHash)
	if err != nil {
		return nil, err
	} else if resTx.TxResult.IsErr() {
		// DeliverTx failed
		return nil, fmt.Errorf("DeliverTx failed: %v", errorsmod.ABCIError(resTx.TxResult.Codespace, resTx.TxResult.Code, resTx.TxResult.Log))
	}

	events, err := parseEvents(resTx.TxResult.Events)
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "tx %s: %v", res.TxHash, err)
	}
	return []*core.TxResponse{{
		TxHash: res.TxHash,
		Height: clienttypes.NewHeight(s.chain.revision, uint64(resTx.Height)),
		Code:   resTx.TxResult.Code,
		Log:    resTx.TxResult.Log,
		Events: events,
	}}, nil
}

func (c *Chain) msgsFromAny(msgs []*codectypes.Any) ([]sdk.Msg, error) {
	out := make([]sdk.Msg, 0, len(msgs))
	for i, m := range msgs {
		var msg sdk.Msg
		if err := c.codec.UnpackAny(m, &msg); err != nil {
			return nil, errorsmod.Wrapf(coreerrors.ErrUnknownMessageType, "msgs[%d] %s: %v", i, m.TypeUrl, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func (c *Chain) rawSendMsgs(ctx context.Context, anyMsgs []*codectypes.Any) (*sdk.TxResponse, error) {
	msgs, err := c.msgsFromAny(anyMsgs)
	if err != nil {
		return nil, err
	}

	done := c.UseSDKContext()
	defer done()

	// Instantiate the client context
	cliCtx, err := c.CLIContext(ctx, 0)
	if err != nil {
		return nil, err
	}

	// Query account details
	txf, err := prepareFactory(cliCtx, c.TxFactory(cliCtx))
	if err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "account: %v", err)
	}

	_, adjusted, err := CalculateGas(cliCtx.QueryWithData, txf, msgs...)
	if err != nil {
		return nil, err
	}

	// Set the gas amount on the transaction factory
	txf = txf.WithGas(adjusted)

	// Build the transaction builder
	txb, err := txf.BuildUnsignedTx(msgs...)
	if err != nil {
		return nil, err
	}

	// Attach the signature to the transaction
	if err := tx.Sign(ctx, txf, c.config.Key, txb, false); err != nil {
		return nil, err
	}

	// Generate the transaction bytes
	txBytes, err := cliCtx.TxConfig.TxEncoder()(txb.GetTx())
	if err != nil {
		return nil, err
	}

	// Broadcast those bytes
	res, err := cliCtx.BroadcastTx(txBytes)
	if err != nil {
		c.LogFailedTx(res, err, msgs)
		return nil, errorsmod.Wrapf(coreerrors.ErrNetwork, "broadcast: %v", err)
	}

	// NOTE: error is nil, logic should use the returned error to determine if the
	// transaction was successfully executed.
	if res.Code != 0 {
		c.LogFailedTx(res, nil, msgs)
		return res, nil
	}

	c.LogSuccessTx(res, msgs)
	return res, nil
}

func (c *Chain) waitForCommit(ctx context.Context, txHash string) (*coretypes.ResultTx, error) {
	var resTx *coretypes.ResultTx

	retryInterval := c.config.averageBlockTime()
	maxRetry := uint(c.config.MaxRetryForCommit)

	if err := retry.Do(func() error {
		var err error
		var recoverable bool
		resTx, recoverable, err = c.rawQueryTx(ctx, txHash)
		if err != nil {
			if recoverable {
				return err
			} else {
				return retry.Unrecoverable(err)
			}
		}
		// In a tendermint chain, when the latest height of the chain is N+1,
		// proofs of states updated up to height N are available.
		// In order to make the proof of the state updated by a tx available just after `sendMsgs`,
		// `waitForCommit` must wait until the latest height is greater than the tx height.
		if height, err := c.QueryLatestHeight(ctx); err != nil {
			return fmt.Errorf("failed to obtain latest height: %v", err)
		} else if height.GetRevisionHeight() <= uint64(resTx.Height) {
			return fmt.Errorf("latest_height(%v) is less than or equal to tx_height(%v) yet", height, resTx.Height)
		}
		return nil
	}, retry.Context(ctx), retry.Attempts(maxRetry), retry.Delay(retryInterval), rtyErr); err != nil {
		return resTx, errorsmod.Wrapf(coreerrors.ErrNetwork, "failed to make sure that tx is committed: %v", err)
	}

	return resTx, nil
}

// rawQueryTx returns a tx of which hash equals to `hexTxHash`.
func (c *Chain) rawQueryTx(ctx context.Context, hexTxHash string) (*coretypes.ResultTx, bool, error) {
	txHash, err := hex.DecodeString(hexTxHash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode the hex string of tx hash: %v", err)
	}

	resTx, err := c.client.Tx(ctx, txHash, false)
	if err != nil {
		recoverable := !strings.Contains(err.Error(), "transaction indexing is disabled")
		return nil, recoverable, fmt.Errorf("failed to retrieve tx: %v", err)
	}

	return resTx, false, nil
}

func prepareFactory(clientCtx sdkCtx.Context, txf tx.Factory) (tx.Factory, error) {
	from := clientCtx.GetFromAddress()

	if err := txf.AccountRetriever().EnsureExists(clientCtx, from); err != nil {
		return txf, err
	}

	initNum, initSeq := txf.AccountNumber(), txf.Sequence()
	if initNum == 0 || initSeq == 0 {
		num, seq, err := txf.AccountRetriever().GetAccountNumberSequence(clientCtx, from)
		if err != nil {
			return txf, err
		}

		if initNum == 0 {
			txf = txf.WithAccountNumber(num)
		}

		if initSeq == 0 {
			txf = txf.WithSequence(seq)
		}
	}

	return txf, nil
}

// CalculateGas simulates the execution of a transaction and returns the
// simulation response obtained by the query and the adjusted gas amount.
func CalculateGas(
	queryFunc func(string, []byte) ([]byte, int64, error), txf tx.Factory, msgs ...sdk.Msg,
) (txtypes.SimulateResponse, uint64, error) {
	txBytes, err := txf.BuildSimTx(msgs...)
	if err != nil {
		return txtypes.SimulateResponse{}, 0, err
	}
	simReq := txtypes.SimulateRequest{TxBytes: txBytes}
	reqBytes, err := simReq.Marshal()
	if err != nil {
		return txtypes.SimulateResponse{}, 0, err
	}

	bz, _, err := queryFunc("/cosmos.tx.v1beta1.Service/Simulate", reqBytes)
	if err != nil {
		return txtypes.SimulateResponse{}, 0, errorsmod.Wrapf(coreerrors.ErrNetwork, "simulate: %v", err)
	}

	var simRes txtypes.SimulateResponse

	if err := simRes.Unmarshal(bz); err != nil {
		return txtypes.SimulateResponse{}, 0, err
	}

	return simRes, uint64(txf.GasAdjustment() * float64(simRes.GasInfo.GasUsed)), nil
}

var sdkContextMutex sync.Mutex

// UseSDKContext uses a custom Bech32 account prefix and returns a restore func
// CONTRACT: When using this function, caller must ensure that lock contention
// doesn't cause program to hang.
func (c *Chain) UseSDKContext() func() {
	// Ensure we're the only one using the global context,
	// lock context to begin function
	sdkContextMutex.Lock()

	// Mutate the sdkConf
	sdkConf := sdk.GetConfig()
	sdkConf.SetBech32PrefixForAccount(c.config.AccountPrefix, c.config.AccountPrefix+"pub")
	sdkConf.SetBech32PrefixForValidator(c.config.AccountPrefix+"valoper", c.config.AccountPrefix+"valoperpub")
	sdkConf.SetBech32PrefixForConsensusNode(c.config.AccountPrefix+"valcons", c.config.AccountPrefix+"valconspub")

	// Return the unlock function, caller must lock and ensure that lock is released
	// before any other function needs to use c.UseSDKContext
	return sdkContextMutex.Unlock
}

// CLIContext returns an instance of client.Context derived from Chain
func (c *Chain) CLIContext(ctx context.Context, height int64) (sdkCtx.Context, error) {
	rec, err := c.keys.Keyring().Key(c.config.Key)
	if err != nil {
		return sdkCtx.Context{}, errorsmod.Wrapf(coreerrors.ErrNotFound, "key %s: %v", c.config.Key, err)
	}
	from, err := rec.GetAddress()
	if err != nil {
		return sdkCtx.Context{}, err
	}
	return sdkCtx.Context{}.
		WithCmdContext(ctx).
		WithChainID(c.config.ChainID).
		WithCodec(c.codec).
		WithInterfaceRegistry(c.codec.InterfaceRegistry()).
		WithTxConfig(authtx.NewTxConfig(c.codec, authtx.DefaultSignModes)).
		WithInput(os.Stdin).
		WithNodeURI(c.config.RPCAddr).
		WithClient(c.client).
		WithAccountRetriever(authtypes.AccountRetriever{}).
		WithBroadcastMode(flags.BroadcastSync).
		WithKeyring(c.keys.Keyring()).
		WithOutputFormat("json").
		WithFrom(c.config.Key).
		WithFromName(c.config.Key).
		WithFromAddress(from).
		WithSkipConfirmation(true).
		WithHeight(height), nil
}

// TxFactory returns an instance of tx.Factory derived from
func (c *Chain) TxFactory(cliCtx sdkCtx.Context) tx.Factory {
	return tx.Factory{}.
		WithAccountRetriever(cliCtx.AccountRetriever).
		WithChainID(c.config.ChainID).
		WithTxConfig(cliCtx.TxConfig).
		WithGasAdjustment(c.config.GasAdjustment).
		WithGasPrices(c.config.GasPrices).
		WithKeybase(c.keys.Keyring()).
		WithSignMode(signing.SignMode_SIGN_MODE_DIRECT)
}
