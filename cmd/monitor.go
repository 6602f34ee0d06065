package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/hyperledger-labs/yui-wasm-relayer/config"
	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	"github.com/hyperledger-labs/yui-wasm-relayer/log"
)

func monitorCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "watch chain events",
		RunE:  noCommand,
	}

	cmd.AddCommand(
		monitorStartCmd(ctx),
	)

	return cmd
}

func monitorStartCmd(ctx *config.Context) *cobra.Command {
	const (
		flagShutdownTimeout = "shutdown-timeout"
	)
	const (
		defaultShutdownTimeout = 5 * time.Second
	)

	cmd := &cobra.Command{
		Use:   "start [chain-id]",
		Short: "Streams event batches of the chain until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shutdownTimeout, err := cmd.Flags().GetDuration(flagShutdownTimeout)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)
			defer stop()
			cmd.SetContext(sigCtx)

			return withEndpoint(cmd, ctx, args[0], func(_ *core.Runtime, ep core.ChainEndpoint) error {
				logger := log.GetLogger().WithChainID(ep.ID()).WithModule("monitor")
				if err := ep.InitLightClient(sigCtx); err != nil {
					return err
				}
				events, m, err := ep.InitEventMonitor(sigCtx)
				if err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					if err := m.Shutdown(shutdownCtx); err != nil {
						logger.Error("failed to shut down the event monitor", err)
					}
				}()

				for {
					select {
					case <-sigCtx.Done():
						logger.Info("interrupted")
						return nil
					case item, ok := <-events:
						if !ok {
							return nil
						}
						if item.Error != nil {
							logger.Error("event monitor error", item.Error)
							continue
						}
						for _, ev := range item.Batch.Events {
							fmt.Fprintf(cmd.OutOrStdout(), "%s %T %v\n", item.Batch.Height, ev, ev)
						}
					}
				}
			})
		},
	}
	cmd.Flags().Duration(flagShutdownTimeout, defaultShutdownTimeout, "time to wait for the monitor to stop before aborting it")
	return cmd
}
