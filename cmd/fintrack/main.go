package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

const programName = "fintrack"

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

// appLogger returns the logger set up by the root command's pre-run hook.
func appLogger(cmd *cobra.Command) *log.Logger {
	return log.FromContext(cmd.Context())
}

func appConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, fmt.Errorf("no config found in context")
	}
	return cfg, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Personal finance tracker: transactions, tags and receipt totals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to YAML config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger := cli.SetupLogger(cfg, globalFlags.debug)

		ctx := config.WithContext(cmd.Context(), cfg)
		ctx = log.NewContext(ctx, logger)
		cmd.SetContext(ctx)
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(workerCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(receiptCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
