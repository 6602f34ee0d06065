package core

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"

	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

// IBCEvent is an event observed on a chain, either in a submitted transaction
// or in a new block.
type IBCEvent interface {
	isIBCEvent()
}

var (
	_ IBCEvent = (*EventNewBlock)(nil)
	_ IBCEvent = (*EventCreateClient)(nil)
	_ IBCEvent = (*EventUpdateClient)(nil)
	_ IBCEvent = (*EventConnectionOpenInit)(nil)
	_ IBCEvent = (*EventConnectionOpenTry)(nil)
	_ IBCEvent = (*EventSendPacket)(nil)
	_ IBCEvent = (*EventUnknown)(nil)
)

func (*EventNewBlock) isIBCEvent()           {}
func (*EventCreateClient) isIBCEvent()       {}
func (*EventUpdateClient) isIBCEvent()       {}
func (*EventConnectionOpenInit) isIBCEvent() {}
func (*EventConnectionOpenTry) isIBCEvent()  {}
func (*EventSendPacket) isIBCEvent()         {}
func (*EventUnknown) isIBCEvent()            {}

type EventNewBlock struct {
	Height clienttypes.Height
}

type EventCreateClient struct {
	ClientID        string
	ClientType      string
	ConsensusHeight clienttypes.Height
}

// EventUpdateClient is emitted when a client is updated. Header is nil when
// the submitted client message could not be recovered.
type EventUpdateClient struct {
	ClientID         string
	ClientType       string
	ConsensusHeights []clienttypes.Height
	Header           *wasm.Header
}

type EventConnectionOpenInit struct {
	ConnectionID             string
	ClientID                 string
	CounterpartyClientID     string
	CounterpartyConnectionID string
}

type EventConnectionOpenTry struct {
	ConnectionID             string
	ClientID                 string
	CounterpartyClientID     string
	CounterpartyConnectionID string
}

type EventSendPacket struct {
	Sequence      uint64
	SrcPort       string
	SrcChannel    string
	TimeoutHeight clienttypes.Height
	Data          []byte
}

type EventUnknown struct {
	Type  string
	Value any
}

// MisbehaviourEvidence is a pair of conflicting headers at the same height.
type MisbehaviourEvidence struct {
	ClientID    string
	Height      clienttypes.Height
	Canonical   *wasm.Header
	Conflicting *wasm.Header
}

var (
	TypeURLCreateClient       = sdk.MsgTypeURL(&clienttypes.MsgCreateClient{})
	TypeURLUpdateClient       = sdk.MsgTypeURL(&clienttypes.MsgUpdateClient{})
	TypeURLConnectionOpenInit = sdk.MsgTypeURL(&conntypes.MsgConnectionOpenInit{})
	TypeURLConnectionOpenTry  = sdk.MsgTypeURL(&conntypes.MsgConnectionOpenTry{})
	TypeURLChannelOpenInit    = sdk.MsgTypeURL(&chantypes.MsgChannelOpenInit{})
	TypeURLRecvPacket         = sdk.MsgTypeURL(&chantypes.MsgRecvPacket{})
)

// SupportedMsgTypeURLs lists the message types an endpoint can route.
func SupportedMsgTypeURLs() []string {
	return []string{
		TypeURLCreateClient,
		TypeURLUpdateClient,
		TypeURLConnectionOpenInit,
		TypeURLConnectionOpenTry,
		TypeURLChannelOpenInit,
		TypeURLRecvPacket,
	}
}

// ValidateMsgs rejects the whole batch if any message has a type that cannot be routed.
func ValidateMsgs(msgs []*codectypes.Any) error {
	for i, msg := range msgs {
		if msg == nil {
			return errorsmod.Wrapf(coreerrors.ErrUnknownMessageType, "msgs[%d] is nil", i)
		}
		switch msg.TypeUrl {
		case TypeURLCreateClient, TypeURLUpdateClient,
			TypeURLConnectionOpenInit, TypeURLConnectionOpenTry,
			TypeURLChannelOpenInit, TypeURLRecvPacket:
		default:
			return errorsmod.Wrapf(coreerrors.ErrUnknownMessageType, "msgs[%d]: %s", i, msg.TypeUrl)
		}
	}
	return nil
}

// EventsFromMsgs derives the events implied by committed messages, for chains
// whose transaction receipts carry no IBC events the relayer can parse.
func EventsFromMsgs(msgs []*codectypes.Any) ([]IBCEvent, error) {
	if err := ValidateMsgs(msgs); err != nil {
		return nil, err
	}
	var events []IBCEvent
	for _, msg := range msgs {
		ev, err := eventFromMsg(msg)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func eventFromMsg(msg *codectypes.Any) (IBCEvent, error) {
	switch msg.TypeUrl {
	case TypeURLCreateClient:
		var m clienttypes.MsgCreateClient
		if err := m.Unmarshal(msg.Value); err != nil {
			return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "MsgCreateClient: %v", err)
		}
		ev := &EventCreateClient{ClientType: wasm.ClientType}
		if cs, err := wasm.UnpackClientState(m.ClientState); err == nil {
			ev.ConsensusHeight = cs.LatestHeight
		}
		return ev, nil
	case TypeURLUpdateClient:
		var m clienttypes.MsgUpdateClient
		if err := m.Unmarshal(msg.Value); err != nil {
			return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "MsgUpdateClient: %v", err)
		}
		return &EventUpdateClient{ClientID: m.ClientId, ClientType: wasm.ClientType}, nil
	case TypeURLConnectionOpenInit:
		var m conntypes.MsgConnectionOpenInit
		if err := m.Unmarshal(msg.Value); err != nil {
			return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "MsgConnectionOpenInit: %v", err)
		}
		return &EventConnectionOpenInit{
			ClientID:                 m.ClientId,
			CounterpartyClientID:     m.Counterparty.ClientId,
			CounterpartyConnectionID: m.Counterparty.ConnectionId,
		}, nil
	case TypeURLConnectionOpenTry:
		var m conntypes.MsgConnectionOpenTry
		if err := m.Unmarshal(msg.Value); err != nil {
			return nil, errorsmod.Wrapf(coreerrors.ErrDecode, "MsgConnectionOpenTry: %v", err)
		}
		return &EventConnectionOpenTry{
			ClientID:                 m.ClientId,
			CounterpartyClientID:     m.Counterparty.ClientId,
			CounterpartyConnectionID: m.Counterparty.ConnectionId,
		}, nil
	default:
		return &EventUnknown{Type: msg.TypeUrl}, nil
	}
}

func (e *EventUpdateClient) String() string {
	return fmt.Sprintf("update_client{client_id=%s heights=%v}", e.ClientID, e.ConsensusHeights)
}
