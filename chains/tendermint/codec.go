package tendermint

import (
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	ibctm "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

// RegisterInterfaces registers the account and light client types a cometbft
// chain needs on top of the IBC core interfaces.
func RegisterInterfaces(registry codectypes.InterfaceRegistry) {
	authtypes.RegisterInterfaces(registry)
	ibctm.RegisterInterfaces(registry)
}

func makeCodec() codec.ProtoCodecMarshaler {
	cdc := core.MakeCodec()
	RegisterInterfaces(cdc.InterfaceRegistry())
	return cdc
}
