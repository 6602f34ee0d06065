package cmd

import (
	"github.com/cosmos/cosmos-sdk/client/flags"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hyperledger-labs/yui-wasm-relayer/core"
)

const (
	flagYAML    = "yaml"
	flagTrusted = "trusted"
	flagTarget  = "target"
)

func heightFlag(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(flags.FlagHeight, "", "height in {revision}-{height} form (defaults to the latest height)")
	return cmd
}

func yamlFlag(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().BoolP(flagYAML, "y", false, "output using yaml")
	if err := viper.BindPFlag(flagYAML, cmd.Flags().Lookup(flagYAML)); err != nil {
		panic(err)
	}
	return cmd
}

func headerRangeFlags(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(flagTrusted, "", "trusted height in {revision}-{height} form")
	cmd.Flags().String(flagTarget, "", "target height in {revision}-{height} form (defaults to the latest height)")
	if err := cmd.MarkFlagRequired(flagTrusted); err != nil {
		panic(err)
	}
	return cmd
}

// getHeight parses the height flag named name. An empty value resolves to latest.
func getHeight(fs *pflag.FlagSet, name string, latest clienttypes.Height) (clienttypes.Height, error) {
	s, err := fs.GetString(name)
	if err != nil {
		return clienttypes.Height{}, err
	}
	if s == "" {
		return latest, nil
	}
	return core.ParseHeight(s, latest.GetRevisionNumber())
}
