package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/gatekeeper/internal/contract"
	"github.com/huangsam/gatekeeper/internal/gitclient"
	"github.com/huangsam/gatekeeper/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "gatekeeper",
	Short:              "Evaluate deployment gates for CI/CD pipelines.",
	Long:               `Gatekeeper reads vulnerability and code quality scan results, applies the deployment gates and decides whether a release may proceed.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setConfigSource()

	// Set environment variable prefix
	viper.SetEnvPrefix("GATEKEEPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("output-file", contract.DefaultOutputFile)
	viper.SetDefault("color", "yes")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("history-backend", schema.NoneBackend)
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("pdp-tenant", contract.DefaultPolicyTenant)
}

// setConfigSource points viper at --config or the default .gatekeeper.yaml locations.
func setConfigSource() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".gatekeeper") // Name of config file (without extension)
	viper.SetConfigType("yaml")        // We'll use YAML format
	viper.AddConfigPath(".")           // Look in the current directory
	viper.AddConfigPath("$HOME")       // Look in the home directory
}

// loadConfigFile reads the config file when present.
func loadConfigFile() error {
	setConfigSource()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(ctx context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	// This populates the global 'cfg' from 'input'.
	if err := contract.ProcessAndValidate(ctx, cfg, gitclient.NewLocalGitClient(), input); err != nil {
		return err
	}

	// 4. Diagnostics go to stderr so stdout stays clean for reports.
	contract.SetupLogging(os.Stderr, cfg.LogLevel)
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
