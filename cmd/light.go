package cmd

import (
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-wasm-relayer/config"
	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

func lightCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "light",
		Short: "build light client updates from a chain",
		RunE:  noCommand,
	}

	cmd.AddCommand(
		lightHeaderCmd(ctx),
		lightClientStateCmd(ctx),
		lightConsensusStateCmd(ctx),
	)

	return cmd
}

func lightHeaderCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "header [chain-id]",
		Short: "Builds the wrapped header at --target and the supporting headers after --trusted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEndpoint(cmd, ctx, args[0], func(_ *core.Runtime, ep core.ChainEndpoint) error {
				latest, err := ep.QueryLatestHeight(cmd.Context())
				if err != nil {
					return err
				}
				trusted, err := getHeight(cmd.Flags(), flagTrusted, latest)
				if err != nil {
					return err
				}
				target, err := getHeight(cmd.Flags(), flagTarget, latest)
				if err != nil {
					return err
				}
				cs, err := ep.BuildClientState(cmd.Context(), trusted)
				if err != nil {
					return err
				}
				header, supporting, err := ep.BuildHeader(cmd.Context(), trusted, target, cs)
				if err != nil {
					return err
				}

				out := struct {
					Target     headerView   `json:"target"`
					Supporting []headerView `json:"supporting"`
				}{
					Target:     newHeaderView(header),
					Supporting: make([]headerView, 0, len(supporting)),
				}
				for _, h := range supporting {
					out.Supporting = append(out.Supporting, newHeaderView(h))
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	return headerRangeFlags(cmd)
}

func lightClientStateCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client-state [chain-id]",
		Short: "Builds the wrapped client state of the chain at --height",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEndpoint(cmd, ctx, args[0], func(_ *core.Runtime, ep core.ChainEndpoint) error {
				latest, err := ep.QueryLatestHeight(cmd.Context())
				if err != nil {
					return err
				}
				height, err := getHeight(cmd.Flags(), flags.FlagHeight, latest)
				if err != nil {
					return err
				}
				cs, err := ep.BuildClientState(cmd.Context(), height)
				if err != nil {
					return err
				}
				view, err := newClientStateView(cs)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
	return heightFlag(cmd)
}

func lightConsensusStateCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consensus-state [chain-id]",
		Short: "Builds the wrapped consensus state of the chain at --height",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEndpoint(cmd, ctx, args[0], func(_ *core.Runtime, ep core.ChainEndpoint) error {
				latest, err := ep.QueryLatestHeight(cmd.Context())
				if err != nil {
					return err
				}
				height, err := getHeight(cmd.Flags(), flags.FlagHeight, latest)
				if err != nil {
					return err
				}
				cs, err := ep.BuildConsensusState(cmd.Context(), height)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), newConsensusStateView(cs))
			})
		},
	}
	return heightFlag(cmd)
}
