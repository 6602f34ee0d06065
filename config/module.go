package config

import (
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

// ModuleI defines an interface of Module
type ModuleI interface {
	// Name returns the name of the module. It is matched against the `type` of a chain config.
	Name() string

	// RegisterInterfaces register the module interfaces to protobuf Any.
	RegisterInterfaces(registry codectypes.InterfaceRegistry)

	// NewChainConfig returns an empty chain config that the raw config of a chain is decoded into
	NewChainConfig() core.ChainConfig

	// GetCmd returns the command. It may return nil if the module has no command.
	GetCmd(ctx *Context) *cobra.Command
}
