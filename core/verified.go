package core

import (
	errorsmod "cosmossdk.io/errors"

	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

// Verified is the result of one verification pass: the item at the requested
// height and the intermediate items that prove the transition from the trusted height.
// Supporting items are in strictly ascending height order.
type Verified[T any] struct {
	Target     T
	Supporting []T
}

// MapVerified applies fn to the target and every supporting item, preserving order.
func MapVerified[T, U any](v Verified[T], fn func(T) (U, error)) (Verified[U], error) {
	target, err := fn(v.Target)
	if err != nil {
		return Verified[U]{}, err
	}
	supporting := make([]U, 0, len(v.Supporting))
	for _, s := range v.Supporting {
		u, err := fn(s)
		if err != nil {
			return Verified[U]{}, err
		}
		supporting = append(supporting, u)
	}
	return Verified[U]{Target: target, Supporting: supporting}, nil
}

// ZipVerified pairs the items of two verification results position by position.
// Both results must come from the same set of heights.
func ZipVerified[A, B, C any](a Verified[A], b Verified[B], fn func(A, B) (C, error)) (Verified[C], error) {
	if len(a.Supporting) != len(b.Supporting) {
		return Verified[C]{}, errLengthMismatch(len(a.Supporting), len(b.Supporting))
	}
	target, err := fn(a.Target, b.Target)
	if err != nil {
		return Verified[C]{}, err
	}
	supporting := make([]C, 0, len(a.Supporting))
	for i := range a.Supporting {
		c, err := fn(a.Supporting[i], b.Supporting[i])
		if err != nil {
			return Verified[C]{}, err
		}
		supporting = append(supporting, c)
	}
	return Verified[C]{Target: target, Supporting: supporting}, nil
}

func errLengthMismatch(a, b int) error {
	return errorsmod.Wrapf(coreerrors.ErrDecode, "cannot zip %d supporting items with %d", a, b)
}
