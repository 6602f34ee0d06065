package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-wasm-relayer/chains/istanbul"
	"github.com/hyperledger-labs/yui-wasm-relayer/config"
)

const (
	flagRPCAddr     = "rpc-addr"
	flagCodeID      = "code-id"
	flagKey         = "key"
	flagHostAddress = "ibc-host-address"
	flagEthChainID  = "eth-chain-id"
	flagEpoch       = "epoch"
	flagAdd         = "add"
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
			hostAddr, _ := flags.GetString(flagHostAddress)
			ethChainID, _ := flags.GetUint64(flagEthChainID)
			epoch, _ := flags.GetUint64(flagEpoch)
			add, _ := flags.GetBool(flagAdd)
			c := istanbul.ChainConfig{
				ChainID:              args[0],
				EthChainID:           ethChainID,
				RPCAddr:              rpcAddr,
				IBCHostAddress:       hostAddr,
				Key:                  key,
				Epoch:                epoch,
				GasLimit:             6_000_000,
				AverageBlockTimeMsec: 5000,
				MaxRetryForCommit:    10,
				CodeID:               codeID,
			}
			if err := c.Validate(); err != nil {
				return err
			}
			cc, err := config.NewChainConfig(istanbul.Family, c)
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
	cmd.Flags().String(flagKey, "", "hex address of the relayer account")
	cmd.Flags().String(flagRPCAddr, "ws://localhost:8546", "ethereum RPC address")
	cmd.Flags().String(flagCodeID, "", "hex checksum of the wasm light client code")
	cmd.Flags().String(flagHostAddress, "", "address of the IBC host contract")
	cmd.Flags().Uint64(flagEthChainID, 1337, "EIP-155 chain ID used to sign transactions")
	cmd.Flags().Uint64(flagEpoch, 30000, "number of blocks per validator epoch")
	cmd.Flags().Bool(flagAdd, false, "append the config to the config file instead of printing it")
	for _, f := range []string{flagKey, flagCodeID, flagHostAddress} {
		if err := cmd.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}
	return cmd
}
