package wasm

import (
	"encoding/hex"

	errorsmod "cosmossdk.io/errors"

	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

// NativeDecoder turns the opaque data of a wrapped client state into the
// chain-native client state of one chain family.
type NativeDecoder func(data []byte) (any, error)

// RegistryEntry binds a verifier code id to the chain family that produced it.
type RegistryEntry struct {
	CodeID []byte
	Family string
	Decode NativeDecoder
}

// Registry dispatches wrapped client states on their code id.
// It is immutable after construction.
type Registry struct {
	entries map[string]RegistryEntry
}

func NewRegistry(entries ...RegistryEntry) (*Registry, error) {
	r := &Registry{entries: make(map[string]RegistryEntry, len(entries))}
	for _, e := range entries {
		key := hex.EncodeToString(e.CodeID)
		if _, found := r.entries[key]; found {
			return nil, errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "code id %s is registered twice", key)
		}
		if e.Decode == nil {
			return nil, errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "code id %s has no decoder", key)
		}
		r.entries[key] = e
	}
	return r, nil
}

// Decode returns the chain family and the native client state of cs.
// Both an unknown code id and undecodable data are reported as a client type mismatch.
func (r *Registry) Decode(cs *ClientState) (string, any, error) {
	if cs == nil {
		return "", nil, errorsmod.Wrap(coreerrors.ErrClientTypeMismatch, "client state is nil")
	}
	key := hex.EncodeToString(cs.CodeID)
	e, found := r.entries[key]
	if !found {
		return "", nil, errorsmod.Wrapf(coreerrors.ErrClientTypeMismatch, "no chain family for code id %s", key)
	}
	native, err := e.Decode(cs.Data)
	if err != nil {
		return "", nil, errorsmod.Wrapf(coreerrors.ErrClientTypeMismatch, "code id %s (%s): %v", key, e.Family, err)
	}
	return e.Family, native, nil
}

// Families returns the chain family registered for each code id, keyed by hex code id.
func (r *Registry) Families() map[string]string {
	out := make(map[string]string, len(r.entries))
	for k, e := range r.entries {
		out[k] = e.Family
	}
	return out
}
