package ctl

import (
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/qsolog/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log := opts.logger(cfg, cmd.ErrOrStderr())

			return opts.withDB(cfg, func(db *sql.DB, rm *repomanager.PostgresRepositoryManager) error {
				if err := rm.RunMigrations(cmd.Context(), db); err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				log.Info(cmd.Context(), "migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the state of every migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return opts.withDB(cfg, func(db *sql.DB, rm *repomanager.PostgresRepositoryManager) error {
				return rm.MigrationStatus(cmd.Context(), db)
			})
		},
	})

	return cmd
}
