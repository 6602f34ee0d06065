package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
)

type Endpoints []core.ChainEndpoint

// Get returns the endpoint of a given chain
func (es Endpoints) Get(chainID string) (core.ChainEndpoint, error) {
	for _, ep := range es {
		if chainID == ep.ID() {
			return ep, nil
		}
	}
	return nil, coreerrors.ErrNotFound.Wrap(fmt.Sprintf("chain with ID %s is not configured", chainID))
}

// Gets returns a map chainIDs to their endpoints
func (es Endpoints) Gets(chainIDs ...string) (map[string]core.ChainEndpoint, error) {
	out := make(map[string]core.ChainEndpoint)
	for _, cid := range chainIDs {
		ep, err := es.Get(cid)
		if err != nil {
			return out, err
		}
		out[cid] = ep
	}
	return out, nil
}

// Shutdown shuts down every endpoint and returns the joined errors
func (es Endpoints) Shutdown(ctx context.Context) error {
	var errs []error
	for _, ep := range es {
		if err := ep.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("chain %s: %w", ep.ID(), err))
		}
	}
	return errors.Join(errs...)
}
