package config

import (
	"fmt"

	"github.com/cosmos/cosmos-sdk/codec"

	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

type Context struct {
	Modules  []ModuleI
	Codec    codec.ProtoCodecMarshaler
	Config   *Config
	HomePath string
}

// Module returns the module registered under name
func (c *Context) Module(name string) (ModuleI, error) {
	return findModule(c.Modules, name)
}

func findModule(modules []ModuleI, name string) (ModuleI, error) {
	for _, m := range modules {
		if m.Name() == name {
			return m, nil
		}
	}
	return nil, coreerrors.ErrInvalidConfig.Wrap(fmt.Sprintf("no module for chain type %q", name))
}
