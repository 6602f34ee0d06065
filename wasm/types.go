package wasm

import (
	"bytes"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"

	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

const (
	// ClientType is the client type of the generic verifier on the counterparty chain.
	ClientType = "08-wasm"

	ClientStateTypeURL    = "/ibc.lightclients.wasm.v1.ClientState"
	ConsensusStateTypeURL = "/ibc.lightclients.wasm.v1.ConsensusState"
	ClientMessageTypeURL  = "/ibc.lightclients.wasm.v1.ClientMessage"
)

// ClientState wraps a chain-native client state. Data is opaque to the relayer
// and CodeID selects the verifier program that interprets it.
type ClientState struct {
	Data         []byte
	CodeID       []byte
	ChainID      string
	LatestHeight clienttypes.Height
	IsFrozen     bool
}

func (cs *ClientState) ClientType() string {
	return ClientType
}

func (cs *ClientState) GetLatestHeight() clienttypes.Height {
	return cs.LatestHeight
}

// Validate performs basic validation of the envelope. It does not look into Data.
func (cs *ClientState) Validate() error {
	if len(cs.Data) == 0 {
		return errorsmod.Wrap(coreerrors.ErrMissingField, "client state data cannot be empty")
	}
	if len(cs.CodeID) == 0 {
		return errorsmod.Wrap(coreerrors.ErrMissingField, "client state code_id cannot be empty")
	}
	if strings.TrimSpace(cs.ChainID) == "" {
		return errorsmod.Wrap(coreerrors.ErrMissingField, "client state chain_id cannot be blank")
	}
	return nil
}

func (cs *ClientState) Equal(other *ClientState) bool {
	if cs == nil || other == nil {
		return cs == other
	}
	return bytes.Equal(cs.Data, other.Data) &&
		bytes.Equal(cs.CodeID, other.CodeID) &&
		cs.ChainID == other.ChainID &&
		cs.LatestHeight.EQ(other.LatestHeight) &&
		cs.IsFrozen == other.IsFrozen
}

// ConsensusState wraps a chain-native consensus state at one trusted height.
// Timestamp is the block time in unix seconds.
type ConsensusState struct {
	Data      []byte
	CodeID    []byte
	Timestamp uint64
	Root      commitmenttypes.MerkleRoot
}

func (cs *ConsensusState) ClientType() string {
	return ClientType
}

// GetTimestamp returns the block time in nanoseconds.
func (cs *ConsensusState) GetTimestamp() uint64 {
	return cs.Timestamp * uint64(time.Second)
}

func (cs *ConsensusState) GetRoot() commitmenttypes.MerkleRoot {
	return cs.Root
}

func (cs *ConsensusState) Validate() error {
	if len(cs.Data) == 0 {
		return errorsmod.Wrap(coreerrors.ErrMissingField, "consensus state data cannot be empty")
	}
	if len(cs.CodeID) == 0 {
		return errorsmod.Wrap(coreerrors.ErrMissingField, "consensus state code_id cannot be empty")
	}
	if cs.Root.Empty() {
		return errorsmod.Wrap(coreerrors.ErrMissingField, "consensus state root cannot be empty")
	}
	return nil
}

func (cs *ConsensusState) Equal(other *ConsensusState) bool {
	if cs == nil || other == nil {
		return cs == other
	}
	return bytes.Equal(cs.Data, other.Data) &&
		bytes.Equal(cs.CodeID, other.CodeID) &&
		cs.Timestamp == other.Timestamp &&
		bytes.Equal(cs.Root.Hash, other.Root.Hash)
}

// Header wraps a chain-native header encoding at a height.
type Header struct {
	Height clienttypes.Height
	Data   []byte
}

func (h *Header) ClientType() string {
	return ClientType
}

func (h *Header) GetHeight() clienttypes.Height {
	return h.Height
}

func (h *Header) Validate() error {
	if len(h.Data) == 0 {
		return errorsmod.Wrap(coreerrors.ErrMissingField, "header data cannot be empty")
	}
	if h.Height.IsZero() {
		return errorsmod.Wrap(coreerrors.ErrMissingField, "header height cannot be zero")
	}
	return nil
}

func (h *Header) Equal(other *Header) bool {
	if h == nil || other == nil {
		return h == other
	}
	return h.Height.EQ(other.Height) && bytes.Equal(h.Data, other.Data)
}
