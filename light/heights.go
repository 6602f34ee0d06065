package light

import (
	"math"

	errorsmod "cosmossdk.io/errors"

	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

// SupportingHeights returns every height strictly between trusted and target
// in ascending order. The result is empty when target <= trusted+1.
func SupportingHeights(trusted, target uint64) ([]uint64, error) {
	if trusted == math.MaxUint64 {
		return nil, errorsmod.Wrapf(coreerrors.ErrHeightOverflow, "no height follows trusted height %d", trusted)
	}
	first := trusted + 1
	if target <= first {
		return []uint64{}, nil
	}
	heights := make([]uint64, 0, target-first)
	for h := first; h < target; h++ {
		heights = append(heights, h)
	}
	return heights, nil
}
