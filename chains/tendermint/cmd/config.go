package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-wasm-relayer/chains/tendermint"
	"github.com/hyperledger-labs/yui-wasm-relayer/config"
)

const (
	flagRPCAddr = "rpc-addr"
	flagCodeID  = "code-id"
	flagKey     = "key"
	flagAdd     = "add"
)

func configCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "manage configuration file",
	}

	cmd.AddCommand(
		generateChainConfigCmd(ctx),
	)

	return cmd
}

func generateChainConfigCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [chain-id]",
		Short: "print a chain config with default values, optionally adding it to the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			key, _ := flags.GetString(flagKey)
			rpcAddr, _ := flags.GetString(flagRPCAddr)
			codeID, _ := flags.GetString(flagCodeID)
			add, _ := flags.GetBool(flagAdd)
			c := tendermint.ChainConfig{
				Key:                  key,
				ChainID:              args[0],
				RPCAddr:              rpcAddr,
				AccountPrefix:        "cosmos",
				KeyringBackend:       "test",
				GasAdjustment:        1.5,
				GasPrices:            "0.025stake",
				AverageBlockTimeMsec: 1000,
				MaxRetryForCommit:    5,
				CodeID:               codeID,
				TrustingPeriod:       "336h",
				UnbondingPeriod:      "504h",
				MaxClockDrift:        "10s",
			}
			if err := c.Validate(); err != nil {
				return err
			}
			cc, err := config.NewChainConfig(tendermint.Family, c)
			if err != nil {
				return err
			}
			if add {
				ctx.Config.AddChain(cc)
				return ctx.Config.Save(config.DefaultConfigPath(ctx.HomePath))
			}
			bz, err := json.MarshalIndent(cc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return nil
		},
	}
	cmd.Flags().String(flagKey, "testkey", "name of the relayer key")
	cmd.Flags().String(flagRPCAddr, "http://localhost:26657", "cometbft RPC address")
	cmd.Flags().String(flagCodeID, "", "hex checksum of the wasm light client code")
	cmd.Flags().Bool(flagAdd, false, "append the config to the config file instead of printing it")
	if err := cmd.MarkFlagRequired(flagCodeID); err != nil {
		panic(err)
	}
	return cmd
}
