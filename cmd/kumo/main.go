package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gratitude5dee/kumorfm-go/internal/config"
	"github.com/gratitude5dee/kumorfm-go/internal/utils"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configFile string
	envFile    string
	logLevel   string
}

// setup loads the .env file and the configuration and builds the logger
func (f *globalFlags) setup(required ...string) (*config.Config, *logrus.Logger, error) {
	logger := utils.SetupLogging(f.logLevel)
	utils.LoadEnvironmentVariables(f.envFile, logger, required...)

	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, nil, err
	}

	// An explicit --log-level wins over the file and environment
	if f.logLevel == "" && cfg.LogLevel != "" {
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			logger.SetLevel(level)
		}
	}
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "kumo",
		Short: "Describe relational data as a table graph and query it with PQL",
		Long: `kumo

Infers column types, primary keys, time columns and foreign-key links for a
set of tables, validates the resulting graph and builds predictive queries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "kumo.yaml", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&flags.envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.PersistentFlags().StringVarP(&flags.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newAnalyzeCmd(flags),
		newQueryCmd(),
		newPredictCmd(flags),
		newDemoCmd(flags),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
