// Package cli provides the groundwork command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/groundwork/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

var (
	configPath string
	envFile    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "groundwork",
	Short: "Answer questions about course material with cited sources",
	Long: `Groundwork indexes a directory of course documents into a vector index
and answers questions about them, citing the passages each answer is
grounded on.

Typical use:
  groundwork ingest                      # index the configured source directory
  groundwork ask "What is a ROS topic?"  # answer a question with sources
  groundwork serve                       # expose HTTP and MCP endpoints`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.groundwork/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "load environment variables from this file if it exists")
}

// SetVersion records the build version shown by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command and releases everything opened while
// wiring services.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	return loadEnv(cmd)
}

// loadEnv reads envFile into the process environment. Variables already
// set win. A missing default file is not an error.
func loadEnv(cmd *cobra.Command) error {
	err := godotenv.Load(envFile)
	switch {
	case err == nil:
		logger.Debug("Loaded environment from %s", envFile)
		return nil
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file"):
		return nil
	default:
		return fmt.Errorf("load env file %s: %w", envFile, err)
	}
}
