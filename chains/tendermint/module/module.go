package module

import (
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-wasm-relayer/chains/tendermint"
	"github.com/hyperledger-labs/yui-wasm-relayer/chains/tendermint/cmd"
	"github.com/hyperledger-labs/yui-wasm-relayer/config"
	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

type Module struct{}

var _ config.ModuleI = (*Module)(nil)

// Name returns the name of the module
func (Module) Name() string {
	return tendermint.Family
}

// RegisterInterfaces register the module interfaces to protobuf Any.
func (Module) RegisterInterfaces(registry codectypes.InterfaceRegistry) {
	tendermint.RegisterInterfaces(registry)
}

func (Module) NewChainConfig() core.ChainConfig {
	return &tendermint.ChainConfig{}
}

// GetCmd returns the command
func (Module) GetCmd(ctx *config.Context) *cobra.Command {
	return cmd.TendermintCmd(ctx)
}
