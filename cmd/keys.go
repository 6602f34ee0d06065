package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperledger-labs/yui-wasm-relayer/config"
	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	"github.com/hyperledger-labs/yui-wasm-relayer/signer"
)

func keysCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keys",
		Aliases: []string{"k"},
		Short:   "manage relayer keys",
		RunE:    noCommand,
	}

	cmd.AddCommand(
		keysAddCmd(ctx),
		keysShowCmd(ctx),
		keysListCmd(ctx),
	)

	return cmd
}

func keysAddCmd(ctx *config.Context) *cobra.Command {
	const flagMnemonic = "mnemonic"

	cmd := &cobra.Command{
		Use:   "add [chain-id] [name]",
		Short: "Adds a key to the key store of the chain, generating a mnemonic unless --mnemonic is given",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mnemonic, err := cmd.Flags().GetString(flagMnemonic)
			if err != nil {
				return err
			}
			generated := mnemonic == ""
			if generated {
				if mnemonic, err = signer.NewMnemonic(); err != nil {
					return err
				}
			}
			return withOfflineEndpoint(cmd, ctx, args[0], func(_ *core.Runtime, ep core.ChainEndpoint) error {
				key, err := ep.Keybase().AddKey(args[1], mnemonic)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", key.Name, key.Address)
				if generated {
					fmt.Fprintf(cmd.OutOrStdout(), "mnemonic: %s\n", mnemonic)
				}
				return nil
			})
		},
	}
	cmd.Flags().String(flagMnemonic, "", "import the key from this mnemonic")
	return cmd
}

func keysShowCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [chain-id] [name]",
		Short: "Shows the address of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOfflineEndpoint(cmd, ctx, args[0], func(_ *core.Runtime, ep core.ChainEndpoint) error {
				key, err := ep.Keybase().GetKey(args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key.Address)
				return nil
			})
		},
	}
	return cmd
}

func keysListCmd(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [chain-id]",
		Short: "Lists the keys of the chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOfflineEndpoint(cmd, ctx, args[0], func(_ *core.Runtime, ep core.ChainEndpoint) error {
				keys, err := ep.Keybase().ListKeys()
				if err != nil {
					return err
				}
				for _, key := range keys {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", key.Name, key.Address)
				}
				return nil
			})
		},
	}
	return cmd
}
