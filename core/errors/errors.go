package errors

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

const codespace = "wasmrelayer"

var (
	// ErrRevisionMismatch is returned when two heights (or a height and the chain's
	// configured revision) belong to different revisions.
	ErrRevisionMismatch = errorsmod.Register(codespace, 2, "revision mismatch")

	// ErrUnknownMessageType is returned when a submitted message cannot be routed.
	ErrUnknownMessageType = errorsmod.Register(codespace, 3, "unknown message type")

	// ErrClientTypeMismatch is returned when a wrapped client state does not belong
	// to the chain family that is asked to interpret it.
	ErrClientTypeMismatch = errorsmod.Register(codespace, 4, "client type mismatch")

	// ErrDecode is returned for malformed wire bytes.
	ErrDecode = errorsmod.Register(codespace, 5, "decode error")

	// ErrMissingField is returned when a required field is absent from a wire message.
	ErrMissingField = errorsmod.Register(codespace, 6, "missing field")

	// ErrNetwork is returned for RPC and transport failures.
	ErrNetwork = errorsmod.Register(codespace, 7, "network error")

	// ErrNotFound is returned when the queried state does not exist at the given height.
	ErrNotFound = errorsmod.Register(codespace, 8, "not found")

	// ErrUnsupported is returned by operations a chain adapter does not implement.
	ErrUnsupported = errorsmod.Register(codespace, 9, "unsupported")

	// ErrHeightOverflow is returned when height arithmetic would wrap.
	ErrHeightOverflow = errorsmod.Register(codespace, 10, "height overflow")

	// ErrMonitor is published on the event stream when the subscription fails.
	ErrMonitor = errorsmod.Register(codespace, 11, "event monitor error")

	// ErrMisbehaviourUnsupported is returned when a chain family has no misbehaviour detection.
	ErrMisbehaviourUnsupported = errorsmod.Register(codespace, 12, "misbehaviour detection is not implemented")

	// ErrValidatorSetDiscontinuity is returned when consecutive committee snapshots
	// within one epoch disagree.
	ErrValidatorSetDiscontinuity = errorsmod.Register(codespace, 13, "validator set discontinuity")

	// ErrInvalidConfig is returned for invalid chain or global configuration.
	ErrInvalidConfig = errorsmod.Register(codespace, 14, "invalid config")

	// ErrSubscriptionClosed is returned by an event subscription whose transport is gone for good.
	ErrSubscriptionClosed = errorsmod.Register(codespace, 15, "subscription closed")

	// ErrEncode is returned when a value cannot be represented on the wire.
	ErrEncode = errorsmod.Register(codespace, 16, "encode error")
)

// IsRetryable reports whether err is a transient failure the caller may retry.
// Configuration, decode and not-found errors are never retryable, nor is a
// closed subscription even when it is reported as a monitor error.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrSubscriptionClosed) {
		return false
	}
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrMonitor)
}
