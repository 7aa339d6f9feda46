package main

import (
	"fmt"

	"github.com/Freeeeeet/tutor_slots/internal/app"
	"github.com/Freeeeeet/tutor_slots/internal/config"
	"github.com/Freeeeeet/tutor_slots/internal/repository/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, func(mg *app.Migrator) error {
					return mg.Run(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd, func(mg *app.Migrator) error {
					version, err := mg.Version(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), version)
					return nil
				})
			},
		},
	)

	return migrateCmd
}

func withMigrator(cmd *cobra.Command, fn func(mg *app.Migrator) error) error {
	if cfg.Storage != config.StoragePostgres {
		return fmt.Errorf("migrations require STORAGE=%s, got %q", config.StoragePostgres, cfg.Storage)
	}

	pool, err := postgres.Connect(cmd.Context(), cfg.GetDBDSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	mg, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	defer mg.Close()

	return fn(mg)
}
