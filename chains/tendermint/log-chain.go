package tendermint

import (
	"fmt"
	"strings"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// LogFailedTx takes the transaction and the messages to create it and logs the appropriate data
func (c *Chain) LogFailedTx(res *sdk.TxResponse, err error, msgs []sdk.Msg) {
	logger := GetChainLogger().WithChainID(c.ID())
	if err != nil {
		logger.Error("failed to send transaction", err, "msgs", getMsgAction(msgs))
		if res == nil {
			return
		}
	}

	if res.Code != 0 && res.Codespace != "" {
		logger.Info("✘ transaction rejected",
			"height", res.Height,
			"msgs", getMsgAction(msgs),
			"codespace", res.Codespace,
			"code", res.Code,
			"raw_log", res.RawLog,
		)
	}
}

// LogSuccessTx take the transaction and the messages to create it and logs the appropriate data
func (c *Chain) LogSuccessTx(res *sdk.TxResponse, msgs []sdk.Msg) {
	GetChainLogger().WithChainID(c.ID()).Info("✔ transaction accepted",
		"height", res.Height, "msgs", getMsgAction(msgs), "tx_hash", res.TxHash)
}

func getMsgAction(msgs []sdk.Msg) string {
	var out string
	for i, msg := range msgs {
		out += fmt.Sprintf("%d:%s,", i, sdk.MsgTypeURL(msg))
	}
	return strings.TrimSuffix(out, ",")
}
