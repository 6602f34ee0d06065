package tendermint

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

// parseEvents converts ABCI events into IBC events, keeping their order.
func parseEvents(events []abci.Event) ([]core.IBCEvent, error) {
	var out []core.IBCEvent
	for _, e := range events {
		ev, err := core.ParseStringEvent(sdk.StringifyEvent(e))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s event: %w", e.Type, err)
		}
		if ev != nil {
			out = append(out, ev)
		}
	}
	return out, nil
}
