package main

import (
	"errors"

	"github.com/spf13/cobra"

	"smartgate/internal/platform/config"
	"smartgate/internal/platform/database"
	"smartgate/internal/platform/logger"
)

func newMigrateCommand() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			log := logger.New(cfg.LogLevel)
			ctx := cmd.Context()

			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("DATABASE_URL is required for migrations")
			}
			defer db.Close()

			migrator, err := database.NewMigrator(db, database.Migrations, log)
			if err != nil {
				return err
			}
			if down {
				return migrator.Down(ctx)
			}
			version, err := migrator.Up(ctx)
			if err != nil {
				return err
			}
			log.InfoContext(ctx, "schema up to date", "version", version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "Revert the most recent migration")
	return cmd
}
