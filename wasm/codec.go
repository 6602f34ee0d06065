package wasm

import (
	"bytes"
	"unicode/utf8"

	errorsmod "cosmossdk.io/errors"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	commitmenttypes "github.com/cosmos/ibc-go/v8/modules/core/23-commitment/types"
	"google.golang.org/protobuf/encoding/protowire"

	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

// Field numbers of the envelope messages. Fields 1-3 of ClientState and
// ClientMessage line up with the ibc.lightclients.wasm.v1 messages.
const (
	clientStateData         protowire.Number = 1
	clientStateCodeID       protowire.Number = 2
	clientStateLatestHeight protowire.Number = 3
	clientStateChainID      protowire.Number = 4
	clientStateIsFrozen     protowire.Number = 5

	consensusStateData      protowire.Number = 1
	consensusStateCodeID    protowire.Number = 2
	consensusStateTimestamp protowire.Number = 3
	consensusStateRoot      protowire.Number = 4

	headerData   protowire.Number = 1
	headerHeight protowire.Number = 2

	heightRevisionNumber protowire.Number = 1
	heightRevisionHeight protowire.Number = 2

	merkleRootHash protowire.Number = 1

	clientMessageData protowire.Number = 1
)

// EncodeClientState fails with ErrEncode when ChainID is not valid UTF-8,
// since the decoder reads it back as a protobuf string.
func EncodeClientState(cs *ClientState) ([]byte, error) {
	if !utf8.ValidString(cs.ChainID) {
		return nil, errorsmod.Wrap(coreerrors.ErrEncode, "ClientState.chain_id: invalid UTF-8")
	}
	var b []byte
	b = appendBytes(b, clientStateData, cs.Data)
	b = appendBytes(b, clientStateCodeID, cs.CodeID)
	b = protowire.AppendTag(b, clientStateLatestHeight, protowire.BytesType)
	b = protowire.AppendBytes(b, encodeHeight(cs.LatestHeight))
	b = appendBytes(b, clientStateChainID, []byte(cs.ChainID))
	if cs.IsFrozen {
		b = protowire.AppendTag(b, clientStateIsFrozen, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b, nil
}

func DecodeClientState(bz []byte) (*ClientState, error) {
	const msg = "ClientState"
	var (
		cs        ClientState
		hasHeight bool
	)
	err := decodeFields(msg, bz, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case clientStateData:
			v, n, err := consumeBytes(msg, "data", typ, b)
			cs.Data = v
			return n, err
		case clientStateCodeID:
			v, n, err := consumeBytes(msg, "code_id", typ, b)
			cs.CodeID = v
			return n, err
		case clientStateLatestHeight:
			v, n, err := consumeBytes(msg, "latest_height", typ, b)
			if err != nil {
				return n, err
			}
			if cs.LatestHeight, err = decodeHeight(v); err != nil {
				return n, err
			}
			hasHeight = true
			return n, nil
		case clientStateChainID:
			v, n, err := consumeString(msg, "chain_id", typ, b)
			cs.ChainID = v
			return n, err
		case clientStateIsFrozen:
			v, n, err := consumeVarint(msg, "is_frozen", typ, b)
			cs.IsFrozen = v != 0
			return n, err
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	if !hasHeight {
		return nil, errorsmod.Wrapf(coreerrors.ErrMissingField, "%s.latest_height", msg)
	}
	return &cs, nil
}

func EncodeConsensusState(cs *ConsensusState) []byte {
	var b []byte
	b = appendBytes(b, consensusStateData, cs.Data)
	b = appendBytes(b, consensusStateCodeID, cs.CodeID)
	if cs.Timestamp != 0 {
		b = protowire.AppendTag(b, consensusStateTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, cs.Timestamp)
	}
	var root []byte
	root = appendBytes(root, merkleRootHash, cs.Root.Hash)
	b = protowire.AppendTag(b, consensusStateRoot, protowire.BytesType)
	b = protowire.AppendBytes(b, root)
	return b
}

func DecodeConsensusState(bz []byte) (*ConsensusState, error) {
	const msg = "ConsensusState"
	var (
		cs      ConsensusState
		hasRoot bool
	)
	err := decodeFields(msg, bz, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case consensusStateData:
			v, n, err := consumeBytes(msg, "data", typ, b)
			cs.Data = v
			return n, err
		case consensusStateCodeID:
			v, n, err := consumeBytes(msg, "code_id", typ, b)
			cs.CodeID = v
			return n, err
		case consensusStateTimestamp:
			v, n, err := consumeVarint(msg, "timestamp", typ, b)
			cs.Timestamp = v
			return n, err
		case consensusStateRoot:
			v, n, err := consumeBytes(msg, "root", typ, b)
			if err != nil {
				return n, err
			}
			if cs.Root, err = decodeMerkleRoot(v); err != nil {
				return n, err
			}
			hasRoot = true
			return n, nil
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	if !hasRoot {
		return nil, errorsmod.Wrapf(coreerrors.ErrMissingField, "%s.root", msg)
	}
	return &cs, nil
}

func EncodeHeader(h *Header) []byte {
	var b []byte
	b = appendBytes(b, headerData, h.Data)
	b = protowire.AppendTag(b, headerHeight, protowire.BytesType)
	b = protowire.AppendBytes(b, encodeHeight(h.Height))
	return b
}

func DecodeHeader(bz []byte) (*Header, error) {
	const msg = "Header"
	var (
		h         Header
		hasHeight bool
	)
	err := decodeFields(msg, bz, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case headerData:
			v, n, err := consumeBytes(msg, "data", typ, b)
			h.Data = v
			return n, err
		case headerHeight:
			v, n, err := consumeBytes(msg, "height", typ, b)
			if err != nil {
				return n, err
			}
			if h.Height, err = decodeHeight(v); err != nil {
				return n, err
			}
			hasHeight = true
			return n, nil
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	if !hasHeight {
		return nil, errorsmod.Wrapf(coreerrors.ErrMissingField, "%s.height", msg)
	}
	return &h, nil
}

// EncodeClientMessage encodes header data as the generic client message
// submitted in MsgUpdateClient.
func EncodeClientMessage(data []byte) []byte {
	return appendBytes(nil, clientMessageData, data)
}

func DecodeClientMessage(bz []byte) ([]byte, error) {
	const msg = "ClientMessage"
	var data []byte
	err := decodeFields(msg, bz, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != clientMessageData {
			return -1, nil
		}
		v, n, err := consumeBytes(msg, "data", typ, b)
		data = v
		return n, err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// PackClientState wraps the encoded client state in an Any.
func PackClientState(cs *ClientState) (*codectypes.Any, error) {
	bz, err := EncodeClientState(cs)
	if err != nil {
		return nil, err
	}
	return &codectypes.Any{TypeUrl: ClientStateTypeURL, Value: bz}, nil
}

func UnpackClientState(anyState *codectypes.Any) (*ClientState, error) {
	if anyState == nil {
		return nil, errorsmod.Wrap(coreerrors.ErrMissingField, "client state any")
	}
	if anyState.TypeUrl != ClientStateTypeURL {
		return nil, errorsmod.Wrapf(coreerrors.ErrClientTypeMismatch, "expected %s, got %s", ClientStateTypeURL, anyState.TypeUrl)
	}
	return DecodeClientState(anyState.Value)
}

func PackConsensusState(cs *ConsensusState) *codectypes.Any {
	return &codectypes.Any{TypeUrl: ConsensusStateTypeURL, Value: EncodeConsensusState(cs)}
}

func UnpackConsensusState(anyState *codectypes.Any) (*ConsensusState, error) {
	if anyState == nil {
		return nil, errorsmod.Wrap(coreerrors.ErrMissingField, "consensus state any")
	}
	if anyState.TypeUrl != ConsensusStateTypeURL {
		return nil, errorsmod.Wrapf(coreerrors.ErrClientTypeMismatch, "expected %s, got %s", ConsensusStateTypeURL, anyState.TypeUrl)
	}
	return DecodeConsensusState(anyState.Value)
}

// PackHeader wraps the header data as a client message Any for MsgUpdateClient.
func PackHeader(h *Header) *codectypes.Any {
	return &codectypes.Any{TypeUrl: ClientMessageTypeURL, Value: EncodeClientMessage(h.Data)}
}

func encodeHeight(h clienttypes.Height) []byte {
	var b []byte
	if h.RevisionNumber != 0 {
		b = protowire.AppendTag(b, heightRevisionNumber, protowire.VarintType)
		b = protowire.AppendVarint(b, h.RevisionNumber)
	}
	if h.RevisionHeight != 0 {
		b = protowire.AppendTag(b, heightRevisionHeight, protowire.VarintType)
		b = protowire.AppendVarint(b, h.RevisionHeight)
	}
	return b
}

func decodeHeight(bz []byte) (clienttypes.Height, error) {
	const msg = "Height"
	var h clienttypes.Height
	err := decodeFields(msg, bz, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case heightRevisionNumber:
			v, n, err := consumeVarint(msg, "revision_number", typ, b)
			h.RevisionNumber = v
			return n, err
		case heightRevisionHeight:
			v, n, err := consumeVarint(msg, "revision_height", typ, b)
			h.RevisionHeight = v
			return n, err
		}
		return -1, nil
	})
	return h, err
}

func decodeMerkleRoot(bz []byte) (commitmenttypes.MerkleRoot, error) {
	const msg = "MerkleRoot"
	var root commitmenttypes.MerkleRoot
	err := decodeFields(msg, bz, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != merkleRootHash {
			return -1, nil
		}
		v, n, err := consumeBytes(msg, "hash", typ, b)
		root.Hash = v
		return n, err
	})
	return root, err
}

// decodeFields walks the fields of a message. handle returns the number of
// bytes it consumed, or -1 to skip a field it does not know.
func decodeFields(msg string, bz []byte, handle func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return errorsmod.Wrapf(coreerrors.ErrDecode, "%s: %v", msg, protowire.ParseError(n))
		}
		bz = bz[n:]

		m, err := handle(num, typ, bz)
		if err != nil {
			return err
		}
		if m < 0 {
			if m = protowire.ConsumeFieldValue(num, typ, bz); m < 0 {
				return errorsmod.Wrapf(coreerrors.ErrDecode, "%s: field %d: %v", msg, num, protowire.ParseError(m))
			}
		}
		bz = bz[m:]
	}
	return nil
}

func consumeBytes(msg, field string, typ protowire.Type, bz []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, errorsmod.Wrapf(coreerrors.ErrDecode, "%s.%s: unexpected wire type %d", msg, field, typ)
	}
	v, n := protowire.ConsumeBytes(bz)
	if n < 0 {
		return nil, 0, errorsmod.Wrapf(coreerrors.ErrDecode, "%s.%s: %v", msg, field, protowire.ParseError(n))
	}
	return bytes.Clone(v), n, nil
}

func consumeString(msg, field string, typ protowire.Type, bz []byte) (string, int, error) {
	v, n, err := consumeBytes(msg, field, typ, bz)
	if err != nil {
		return "", n, err
	}
	if !utf8.Valid(v) {
		return "", n, errorsmod.Wrapf(coreerrors.ErrDecode, "%s.%s: invalid UTF-8", msg, field)
	}
	return string(v), n, nil
}

func consumeVarint(msg, field string, typ protowire.Type, bz []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, errorsmod.Wrapf(coreerrors.ErrDecode, "%s.%s: unexpected wire type %d", msg, field, typ)
	}
	v, n := protowire.ConsumeVarint(bz)
	if n < 0 {
		return 0, 0, errorsmod.Wrapf(coreerrors.ErrDecode, "%s.%s: %v", msg, field, protowire.ParseError(n))
	}
	return v, n, nil
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}
