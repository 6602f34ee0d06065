package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-wasm-relayer/chains/istanbul"
	"github.com/hyperledger-labs/yui-wasm-relayer/config"
	"github.com/hyperledger-labs/yui-wasm-relayer/coreutil"
	"github.com/hyperledger-labs/yui-wasm-relayer/log"
)

func snapshotCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot [chain-id] [height]",
		Short: "print the validator snapshot of an istanbul chain at a height",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			height, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid height %q: %v", args[1], err)
			}
			rt := ctx.Config.NewRuntime(cmd.Context())
			defer rt.Close()

			eps, err := config.Build(cmd.Context(), ctx.Config, rt, ctx.HomePath, ctx.Modules)
			if err != nil {
				return err
			}
			defer func() {
				if err := eps.Shutdown(context.Background()); err != nil {
					log.GetLogger().Error("failed to shut down endpoints", err)
				}
			}()
			ep, err := eps.Get(args[0])
			if err != nil {
				return err
			}
			chain, err := coreutil.UnwrapEndpoint[*istanbul.Chain](ep)
			if err != nil {
				return err
			}
			snapshots, err := chain.Snapshots(cmd.Context(), height)
			if err != nil {
				return err
			}
			bz, err := json.MarshalIndent(snapshots[0], "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
	return cmd
}
