package core

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"

	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

// ibcEventTypes lists the IBC events that have no typed counterpart. They are
// surfaced as EventUnknown; non-IBC events are dropped.
var ibcEventTypes = map[string]bool{
	clienttypes.EventTypeUpgradeClient:       true,
	clienttypes.EventTypeSubmitMisbehaviour:  true,
	conntypes.EventTypeConnectionOpenAck:     true,
	conntypes.EventTypeConnectionOpenConfirm: true,
	chantypes.EventTypeChannelOpenInit:       true,
	chantypes.EventTypeChannelOpenTry:        true,
	chantypes.EventTypeChannelOpenAck:        true,
	chantypes.EventTypeChannelOpenConfirm:    true,
	chantypes.EventTypeChannelCloseInit:      true,
	chantypes.EventTypeChannelCloseConfirm:   true,
	chantypes.EventTypeRecvPacket:            true,
	chantypes.EventTypeWriteAck:              true,
	chantypes.EventTypeAcknowledgePacket:     true,
	chantypes.EventTypeTimeoutPacket:         true,
	chantypes.EventTypeChannelClosed:         true,
}

// ParseStringEvent converts a stringified IBC event into a typed event. Known
// IBC events without a typed counterpart become EventUnknown; a nil event
// with a nil error means the event is not an IBC event.
func ParseStringEvent(ev sdk.StringEvent) (IBCEvent, error) {
	switch ev.Type {
	case clienttypes.EventTypeCreateClient:
		var event EventCreateClient
		var err0, err1, err2 error
		event.ClientID, err0 = getAttributeString(ev, clienttypes.AttributeKeyClientID)
		event.ClientType, err1 = getAttributeString(ev, clienttypes.AttributeKeyClientType)
		event.ConsensusHeight, err2 = getAttributeHeight(ev, clienttypes.AttributeKeyConsensusHeight)
		if err := errors.Join(err0, err1, err2); err != nil {
			return nil, err
		}
		return &event, nil
	case clienttypes.EventTypeUpdateClient:
		var event EventUpdateClient
		var err0, err1, err2, err3 error
		event.ClientID, err0 = getAttributeString(ev, clienttypes.AttributeKeyClientID)
		event.ClientType, err1 = getAttributeString(ev, clienttypes.AttributeKeyClientType)
		event.ConsensusHeights, err2 = getAttributeHeights(ev, clienttypes.AttributeKeyConsensusHeights)
		if err2 != nil {
			event.ConsensusHeights, err2 = getAttributeHeights(ev, clienttypes.AttributeKeyConsensusHeight)
		}
		if err := errors.Join(err0, err1, err2); err != nil {
			return nil, err
		}
		if len(event.ConsensusHeights) > 0 {
			event.Header, err3 = getAttributeHeader(ev, clienttypes.AttributeKeyHeader, event.ConsensusHeights[0])
			if err3 != nil {
				return nil, err3
			}
		}
		return &event, nil
	case conntypes.EventTypeConnectionOpenInit:
		var event EventConnectionOpenInit
		var err0, err1, err2 error
		event.ConnectionID, err0 = getAttributeString(ev, conntypes.AttributeKeyConnectionID)
		event.ClientID, err1 = getAttributeString(ev, conntypes.AttributeKeyClientID)
		event.CounterpartyClientID, err2 = getAttributeString(ev, conntypes.AttributeKeyCounterpartyClientID)
		event.CounterpartyConnectionID = getAttributeStringOr(ev, conntypes.AttributeKeyCounterpartyConnectionID, "")
		if err := errors.Join(err0, err1, err2); err != nil {
			return nil, err
		}
		return &event, nil
	case conntypes.EventTypeConnectionOpenTry:
		var event EventConnectionOpenTry
		var err0, err1, err2, err3 error
		event.ConnectionID, err0 = getAttributeString(ev, conntypes.AttributeKeyConnectionID)
		event.ClientID, err1 = getAttributeString(ev, conntypes.AttributeKeyClientID)
		event.CounterpartyClientID, err2 = getAttributeString(ev, conntypes.AttributeKeyCounterpartyClientID)
		event.CounterpartyConnectionID, err3 = getAttributeString(ev, conntypes.AttributeKeyCounterpartyConnectionID)
		if err := errors.Join(err0, err1, err2, err3); err != nil {
			return nil, err
		}
		return &event, nil
	case chantypes.EventTypeSendPacket:
		var event EventSendPacket
		var err0, err1, err2, err3, err4 error
		event.Data, err0 = getAttributeBytes(ev, chantypes.AttributeKeyDataHex)
		event.TimeoutHeight, err1 = getAttributeHeight(ev, chantypes.AttributeKeyTimeoutHeight)
		event.Sequence, err2 = getAttributeUint64(ev, chantypes.AttributeKeySequence)
		event.SrcPort, err3 = getAttributeString(ev, chantypes.AttributeKeySrcPort)
		event.SrcChannel, err4 = getAttributeString(ev, chantypes.AttributeKeySrcChannel)
		if err := errors.Join(err0, err1, err2, err3, err4); err != nil {
			return nil, err
		}
		return &event, nil
	default:
		if ibcEventTypes[ev.Type] {
			return &EventUnknown{Type: ev.Type, Value: ev}, nil
		}
		return nil, nil
	}
}

func getAttributeString(ev sdk.StringEvent, key string) (string, error) {
	for _, attr := range ev.Attributes {
		if attr.Key == key {
			return attr.Value, nil
		}
	}
	return "", fmt.Errorf("failed to find attribute of key %q", key)
}

func getAttributeStringOr(ev sdk.StringEvent, key, fallback string) string {
	v, err := getAttributeString(ev, key)
	if err != nil {
		return fallback
	}
	return v
}

func getAttributeBytes(ev sdk.StringEvent, key string) ([]byte, error) {
	v, err := getAttributeString(ev, key)
	if err != nil {
		return nil, err
	}
	bz, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex string: %v", err)
	}
	return bz, nil
}

func getAttributeHeight(ev sdk.StringEvent, key string) (clienttypes.Height, error) {
	v, err := getAttributeString(ev, key)
	if err != nil {
		return clienttypes.Height{}, err
	}
	height, err := clienttypes.ParseHeight(v)
	if err != nil {
		return clienttypes.Height{}, fmt.Errorf("failed to parse height: %v", err)
	}
	return height, nil
}

func getAttributeUint64(ev sdk.StringEvent, key string) (uint64, error) {
	v, err := getAttributeString(ev, key)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse uint: %v", err)
	}
	return d, nil
}

func getAttributeHeights(ev sdk.StringEvent, key string) ([]clienttypes.Height, error) {
	v, err := getAttributeString(ev, key)
	if err != nil {
		return nil, err
	}
	var heights []clienttypes.Height
	for _, s := range strings.Split(v, ",") {
		height, err := clienttypes.ParseHeight(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse height: %v", err)
		}
		heights = append(heights, height)
	}
	return heights, nil
}

// getAttributeHeader recovers the wrapped header from the hex encoded client
// message. A missing attribute or a message of another client type yields nil.
func getAttributeHeader(ev sdk.StringEvent, key string, height clienttypes.Height) (*wasm.Header, error) {
	bz, err := getAttributeBytes(ev, key)
	if err != nil {
		if _, missing := getAttributeString(ev, key); missing != nil {
			return nil, nil
		}
		return nil, err
	}
	var anyMsg codectypes.Any
	if err := anyMsg.Unmarshal(bz); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client message: %v", err)
	}
	if anyMsg.TypeUrl != wasm.ClientMessageTypeURL {
		return nil, nil
	}
	data, err := wasm.DecodeClientMessage(anyMsg.Value)
	if err != nil {
		return nil, err
	}
	return &wasm.Header{Height: height, Data: data}, nil
}
