package cmd

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-wasm-relayer/config"
	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	"github.com/hyperledger-labs/yui-wasm-relayer/log"
	"github.com/hyperledger-labs/yui-wasm-relayer/wasm"
)

// withEndpoint bootstraps the configured chains and calls fn with the endpoint of chainID.
// Endpoints are shut down and the runtime is closed when fn returns.
func withEndpoint(cmd *cobra.Command, ctx *config.Context, chainID string, fn func(rt *core.Runtime, ep core.ChainEndpoint) error) error {
	return runWithEndpoint(cmd, ctx, config.Bootstrap, chainID, fn)
}

// withOfflineEndpoint is like withEndpoint but does not probe the chains.
func withOfflineEndpoint(cmd *cobra.Command, ctx *config.Context, chainID string, fn func(rt *core.Runtime, ep core.ChainEndpoint) error) error {
	return runWithEndpoint(cmd, ctx, config.Build, chainID, fn)
}

type buildFunc func(context.Context, *config.Config, *core.Runtime, string, []config.ModuleI) (config.Endpoints, error)

func runWithEndpoint(cmd *cobra.Command, ctx *config.Context, build buildFunc, chainID string, fn func(rt *core.Runtime, ep core.ChainEndpoint) error) error {
	rt := ctx.Config.NewRuntime(cmd.Context())
	defer rt.Close()

	eps, err := build(cmd.Context(), ctx.Config, rt, ctx.HomePath, ctx.Modules)
	if err != nil {
		return err
	}
	defer func() {
		if err := eps.Shutdown(context.Background()); err != nil {
			log.GetLogger().Error("failed to shut down endpoints", err)
		}
	}()

	ep, err := eps.Get(chainID)
	if err != nil {
		return err
	}
	return fn(rt, ep)
}

type headerView struct {
	Height string `json:"height"`
	Data   string `json:"data"`
}

func newHeaderView(h *wasm.Header) headerView {
	return headerView{Height: h.Height.String(), Data: hex.EncodeToString(h.Data)}
}

type clientStateView struct {
	ChainID      string `json:"chain_id"`
	LatestHeight string `json:"latest_height"`
	IsFrozen     bool   `json:"is_frozen"`
	CodeID       string `json:"code_id"`
	Data         string `json:"data"`
	Encoded      string `json:"encoded"`
}

func newClientStateView(cs *wasm.ClientState) (clientStateView, error) {
	encoded, err := wasm.EncodeClientState(cs)
	if err != nil {
		return clientStateView{}, err
	}
	return clientStateView{
		ChainID:      cs.ChainID,
		LatestHeight: cs.LatestHeight.String(),
		IsFrozen:     cs.IsFrozen,
		CodeID:       hex.EncodeToString(cs.CodeID),
		Data:         hex.EncodeToString(cs.Data),
		Encoded:      hex.EncodeToString(encoded),
	}, nil
}

type consensusStateView struct {
	Timestamp string `json:"timestamp"`
	Root      string `json:"root"`
	CodeID    string `json:"code_id"`
	Data      string `json:"data"`
	Encoded   string `json:"encoded"`
}

func newConsensusStateView(cs *wasm.ConsensusState) consensusStateView {
	return consensusStateView{
		Timestamp: time.Unix(int64(cs.Timestamp), 0).UTC().Format(time.RFC3339),
		Root:      hex.EncodeToString(cs.Root.GetHash()),
		CodeID:    hex.EncodeToString(cs.CodeID),
		Data:      hex.EncodeToString(cs.Data),
		Encoded:   hex.EncodeToString(wasm.EncodeConsensusState(cs)),
	}
}

func printJSON(w io.Writer, v any) error {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(bz))
	return err
}
