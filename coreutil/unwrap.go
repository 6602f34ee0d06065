package coreutil

import (
	"fmt"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	"github.com/hyperledger-labs/yui-wasm-relayer/otelcore"
)

// UnwrapEndpoint finds the first endpoint value in the wrapper chain that matches
// the specified type argument.
//
// In the following example, UnwrapEndpoint returns the *tendermint.Chain behind a traced endpoint:
//
//	chain, err := coreutil.UnwrapEndpoint[*tendermint.Chain](endpoint)
func UnwrapEndpoint[C core.ChainEndpoint](ep core.ChainEndpoint) (C, error) {
	endpoint := ep
	for {
		switch unwrapped := endpoint.(type) {
		case *otelcore.Endpoint:
			endpoint = unwrapped.ChainEndpoint
		case C:
			return unwrapped, nil
		default:
			var zero C
			return zero, fmt.Errorf("failed to unwrap endpoint: expected=%T, actual=%T", zero, unwrapped)
		}
	}
}
