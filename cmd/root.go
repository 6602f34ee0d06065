package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hyperledger-labs/yui-wasm-relayer/config"
	"github.com/hyperledger-labs/yui-wasm-relayer/core"
	"github.com/hyperledger-labs/yui-wasm-relayer/internal/telemetry"
	"github.com/hyperledger-labs/yui-wasm-relayer/log"
)

const (
	envPrefix = "WASMRLY"

	flagLogLevel        = "log-level"
	flagLogFormat       = "log-format"
	flagLogOutput       = "log-output"
	flagEnableTelemetry = "enable-telemetry"
)

var (
	homePath    string
	defaultHome = filepath.Join(os.Getenv("HOME"), ".wasm-relayer")
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(modules ...config.ModuleI) error {
	rootCmd, err := NewRootCmd(modules...)
	if err != nil {
		return err
	}
	return rootCmd.ExecuteContext(context.Background())
}

// NewRootCmd returns the root command with the commands of every module attached.
func NewRootCmd(modules ...config.ModuleI) (*cobra.Command, error) {
	// rootCmd represents the base command when called without any subcommands
	var rootCmd = &cobra.Command{
		Use:   "wrly",
		Short: "This application keeps wasm light clients of configured chains up to date",
	}

	cobra.EnableCommandSorting = false
	rootCmd.SilenceUsage = true

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Register top level flags
	rootCmd.PersistentFlags().StringVar(&homePath, flags.FlagHome, defaultHome, "set home directory")
	rootCmd.PersistentFlags().String(flagLogLevel, "info", "set the log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String(flagLogFormat, "text", "set the log format (text, json)")
	rootCmd.PersistentFlags().String(flagLogOutput, "stderr", "set the log output (stdout, stderr)")
	rootCmd.PersistentFlags().Bool(flagEnableTelemetry, false, "enable OpenTelemetry traces, metrics and logs")
	for _, name := range []string{flags.FlagHome, flagLogLevel, flagLogFormat, flagLogOutput, flagEnableTelemetry} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			return nil, err
		}
	}

	// Register interfaces
	codec := core.MakeCodec()
	for _, module := range modules {
		module.RegisterInterfaces(codec.InterfaceRegistry())
	}
	ctx := &config.Context{Modules: modules, Codec: codec, Config: &config.Config{}}

	var shutdownTelemetry func(context.Context) error
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		ctx.HomePath = viper.GetString(flags.FlagHome)
		enableTelemetry := viper.GetBool(flagEnableTelemetry)
		if enableTelemetry {
			shutdown, err := telemetry.SetupOTelSDK(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to set up OpenTelemetry SDK: %w", err)
			}
			shutdownTelemetry = shutdown
			if err := telemetry.InitializeMetrics(); err != nil {
				return err
			}
		}
		if err := log.InitLogger(
			viper.GetString(flagLogLevel),
			viper.GetString(flagLogFormat),
			viper.GetString(flagLogOutput),
			enableTelemetry,
		); err != nil {
			return err
		}
		// reads `homeDir/config/config.json` into `ctx.Config` before each command
		return initConfig(ctx)
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, _ []string) error {
		if shutdownTelemetry == nil {
			return nil
		}
		return shutdownTelemetry(context.Background())
	}

	rootCmd.AddCommand(
		configCmd(ctx),
		chainsCmd(ctx),
		lightCmd(ctx),
		monitorCmd(ctx),
		keysCmd(ctx),
		modulesCmd(ctx),
	)
	for _, module := range modules {
		if cmd := module.GetCmd(ctx); cmd != nil {
			rootCmd.AddCommand(cmd)
		}
	}

	return rootCmd, nil
}

func noCommand(cmd *cobra.Command, args []string) error {
	cmd.Help()
	return nil
}
