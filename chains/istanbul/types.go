package istanbul

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// Snapshot is the validator set in force at a block, as returned by
// istanbul_getSnapshot.
type Snapshot struct {
	Epoch      uint64           `json:"epoch"`
	Number     uint64           `json:"number"`
	Hash       common.Hash      `json:"hash"`
	Validators []common.Address `json:"validators"`
}

// Block is a header together with the snapshot proving who signed it.
type Block struct {
	Header   *types.Header
	Snapshot *Snapshot
}

func (b *Block) Number() uint64 {
	return b.Header.Number.Uint64()
}

// ClientState is the native client state carried by a wrapped client state.
type ClientState struct {
	ChainID      string
	Epoch        uint64
	Validators   []common.Address
	LatestHeight uint64
	Frozen       bool
}

// ConsensusState is the native consensus state carried by a wrapped consensus state.
type ConsensusState struct {
	Number     uint64
	Timestamp  uint64
	Root       common.Hash
	Validators []common.Address
}

func (cs *ClientState) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(cs)
}

func (cs *ConsensusState) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(cs)
}

// DecodeClientState decodes the native client state carried by a wrapped client state.
func DecodeClientState(data []byte) (any, error) {
	var cs ClientState
	if err := rlp.DecodeBytes(data, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

func DecodeConsensusState(data []byte) (*ConsensusState, error) {
	var cs ConsensusState
	if err := rlp.DecodeBytes(data, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

func encodeHeader(h *types.Header) ([]byte, error) {
	return rlp.EncodeToBytes(h)
}

func decodeHeader(data []byte) (*types.Header, error) {
	var h types.Header
	if err := rlp.DecodeBytes(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func sameValidators(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

const hostABIJSON = `[
	{
		"type": "function",
		"name": "getRawState",
		"stateMutability": "view",
		"inputs": [
			{"name": "path", "type": "string"},
			{"name": "key", "type": "bytes"}
		],
		"outputs": [
			{"name": "value", "type": "bytes"},
			{"name": "found", "type": "bool"}
		]
	},
	{
		"type": "function",
		"name": "handleMessage",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "typeUrl", "type": "string"},
			{"name": "value", "type": "bytes"}
		],
		"outputs": []
	},
	{
		"type": "event",
		"name": "IBCEvent",
		"anonymous": false,
		"inputs": [
			{"name": "eventType", "type": "string", "indexed": false},
			{"name": "keys", "type": "string[]", "indexed": false},
			{"name": "values", "type": "string[]", "indexed": false}
		]
	}
]`

const (
	methodGetRawState   = "getRawState"
	methodHandleMessage = "handleMessage"
	eventIBC            = "IBCEvent"
)

// HostABI is the interface of the IBC host contract the relayer talks to.
var HostABI = mustParseABI(hostABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
