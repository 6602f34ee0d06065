package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-wasm-relayer/config"
)

func IstanbulCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "istanbul",
		Short: "manage istanbul chain configurations",
	}

	cmd.AddCommand(
		configCmd(ctx),
		snapshotCmd(ctx),
	)

	return cmd
}
