package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-wasm-relayer/config"
	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

func chainsCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chains",
		Short: "inspect configured chains",
		RunE:  noCommand,
	}

	cmd.AddCommand(
		chainsListCmd(ctx),
		chainsHealthCmd(ctx),
		chainsLatestHeightCmd(ctx),
	)

	return cmd
}

func chainsListCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "Lists the configured chains and their types",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, cc := range ctx.Config.Chains {
				if _, err := cc.Decode(ctx.Modules); err != nil {
					return fmt.Errorf("chains[%d]: %w", i, err)
				}
				var id struct {
					ChainID string `json:"chain_id"`
				}
				if err := json.Unmarshal(cc.Config, &id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s (%s)\n", i, id.ChainID, cc.Type)
			}
			return nil
		},
	}
	return cmd
}

func chainsHealthCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health [chain-id]",
		Short: "Checks whether the chain is reachable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEndpoint(cmd, ctx, args[0], func(_ *core.Runtime, ep core.ChainEndpoint) error {
				h := ep.HealthCheck(cmd.Context())
				if h.IsHealthy() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", ep.ID(), h.Status)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s: %s\n", ep.ID(), h.Status, h.Reason)
				return fmt.Errorf("chain %s is unhealthy", ep.ID())
			})
		},
	}
	return cmd
}

func chainsLatestHeightCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latest-height [chain-id]",
		Short: "Queries the latest height of the chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEndpoint(cmd, ctx, args[0], func(_ *core.Runtime, ep core.ChainEndpoint) error {
				h, err := ep.QueryLatestHeight(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), h.String())
				return nil
			})
		},
	}
	return cmd
}
