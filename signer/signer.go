package signer

import (
	"context"
)

// Signer signs digests with a key it does not expose.
type Signer interface {
	Sign(ctx context.Context, digest []byte) (signature []byte, err error)
	GetPublicKey(ctx context.Context) ([]byte, error)
}
