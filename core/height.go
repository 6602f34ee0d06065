package core

import (
	"math"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"

	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

// CheckRevision returns ErrRevisionMismatch unless every height belongs to the given revision.
func CheckRevision(revision uint64, heights ...clienttypes.Height) error {
	for _, h := range heights {
		if h.RevisionNumber != revision {
			return errorsmod.Wrapf(coreerrors.ErrRevisionMismatch, "height %s is not in revision %d", h, revision)
		}
	}
	return nil
}

// NextHeight returns the height that follows h in the same revision.
func NextHeight(h clienttypes.Height) (clienttypes.Height, error) {
	if h.RevisionHeight == math.MaxUint64 {
		return clienttypes.Height{}, errorsmod.Wrapf(coreerrors.ErrHeightOverflow, "no height follows %s", h)
	}
	return clienttypes.NewHeight(h.RevisionNumber, h.RevisionHeight+1), nil
}

// ParseHeight parses a height in "{revision}-{height}" form, or a bare height in the given revision.
func ParseHeight(s string, revision uint64) (clienttypes.Height, error) {
	if h, err := clienttypes.ParseHeight(s); err == nil {
		return h, nil
	}
	rh, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return clienttypes.Height{}, errorsmod.Wrapf(coreerrors.ErrDecode, "invalid height %q: %v", s, err)
	}
	return clienttypes.NewHeight(revision, rh), nil
}

// SignedHeight converts a revision height to the signed form used by
// CometBFT RPCs, rejecting heights that do not fit in an int64.
func SignedHeight(height uint64) (int64, error) {
	if height > math.MaxInt64 {
		return 0, errorsmod.Wrapf(coreerrors.ErrHeightOverflow, "height %d exceeds %d", height, int64(math.MaxInt64))
	}
	return int64(height), nil
}
