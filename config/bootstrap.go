package config

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	retry "github.com/avast/retry-go"
	"go.opentelemetry.io/otel"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	coreerrors "github.com/hyperledger-labs/yui-wasm-relayer/core/errors"
	"github.com/hyperledger-labs/yui-wasm-relayer/log"
	"github.com/hyperledger-labs/yui-wasm-relayer/otelcore"
)

var tracer = otel.Tracer("github.com/hyperledger-labs/yui-wasm-relayer/config")

// NewRuntime returns a runtime bounded by the global in-flight limit
func (c *Config) NewRuntime(ctx context.Context) *core.Runtime {
	return core.NewRuntime(ctx, c.Global.MaxInFlight)
}

// Build builds an endpoint for every configured chain without contacting the chains.
// Each chain config is decoded by the module named by its type, validated and built,
// and the resulting endpoint is wrapped for tracing.
// On failure the endpoints built so far are shut down.
func Build(ctx context.Context, cfg *Config, rt *core.Runtime, homePath string, modules []ModuleI) (Endpoints, error) {
	if err := cfg.Global.Validate(); err != nil {
		return nil, errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "invalid global config: %v", err)
	}

	var eps Endpoints
	seen := make(map[string]struct{})
	for i, cc := range cfg.Chains {
		chainCfg, err := cc.Decode(modules)
		if err != nil {
			return shutdownOnError(ctx, eps, fmt.Errorf("chains[%d]: %w", i, err))
		}
		ep, err := chainCfg.Build(rt, homePath)
		if err != nil {
			return shutdownOnError(ctx, eps, fmt.Errorf("chains[%d]: failed to build %s endpoint: %w", i, cc.Type, err))
		}
		if _, ok := seen[ep.ID()]; ok {
			return shutdownOnError(ctx, append(eps, ep), errorsmod.Wrapf(coreerrors.ErrInvalidConfig, "chains[%d]: duplicate chain ID %s", i, ep.ID()))
		}
		seen[ep.ID()] = struct{}{}
		eps = append(eps, otelcore.NewEndpoint(ep, tracer))
	}
	return eps, nil
}

// Bootstrap builds the endpoints like Build and then probes the latest height of
// every chain once, retrying transient failures only.
func Bootstrap(ctx context.Context, cfg *Config, rt *core.Runtime, homePath string, modules []ModuleI) (Endpoints, error) {
	eps, err := Build(ctx, cfg, rt, homePath, modules)
	if err != nil {
		return nil, err
	}
	for _, ep := range eps {
		if err := probe(ctx, cfg.Global, ep); err != nil {
			return shutdownOnError(ctx, eps, err)
		}
	}
	return eps, nil
}

func shutdownOnError(ctx context.Context, eps Endpoints, err error) (Endpoints, error) {
	if serr := eps.Shutdown(ctx); serr != nil {
		log.GetLogger().WithModule("config").Error("failed to shut down endpoints", serr)
	}
	return nil, err
}

func probe(ctx context.Context, global GlobalConfig, ep core.ChainEndpoint) error {
	logger := log.GetLogger().WithChainID(ep.ID()).WithModule("config")

	var height fmt.Stringer
	err := retry.Do(func() error {
		pctx, cancel := context.WithTimeout(ctx, global.timeout())
		defer cancel()
		h, err := ep.QueryLatestHeight(pctx)
		if err != nil {
			return err
		}
		height = h
		return nil
	},
		retry.Attempts(global.ProbeAttempts),
		retry.Delay(global.probeInterval()),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(coreerrors.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("retrying chain probe", "attempt", n+1, "max_attempts", global.ProbeAttempts, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to probe chain %s: %w", ep.ID(), err)
	}
	logger.Debug("chain probed", "latest_height", height.String())
	return nil
}
