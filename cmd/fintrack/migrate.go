package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/storage"
)

func migrateCommand() *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := appConfig(cmd)
			if err != nil {
				return err
			}
			logger := appLogger(cmd)
			ctx := cmd.Context()

			// Open runs the migrations.
			store, err := storage.Open(ctx, cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			version, dirty, err := storage.SchemaVersion(cfg.DBPath)
			if err != nil {
				return err
			}
			if rebuild {
				days, err := store.RebuildDailyTotals(ctx)
				if err != nil {
					return err
				}
				logger.InfoContext(ctx, "Daily totals rebuilt", "days", days)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%v) at %s\n", version, dirty, store.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild-totals", false, "recompute every daily total after migrating")
	return cmd
}
