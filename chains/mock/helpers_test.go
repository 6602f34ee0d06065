package mock_test

import (
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	mocktypes "github.com/datachainlab/ibc-mock-client/modules/light-clients/xx-mock/types"

	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

type mockHeader struct {
	height    clienttypes.Height
	timestamp uint64
}

func (h *mockHeader) wrap() (*wasm.Header, error) {
	bz, err := (&mocktypes.Header{Height: h.height, Timestamp: h.timestamp}).Marshal()
	if err != nil {
		return nil, err
	}
	return &wasm.Header{Height: h.height, Data: bz}, nil
}
