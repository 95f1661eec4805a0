// Package ctl implements qsologctl, the operator command line for schema
// migrations, offline exports and access-token minting.
package ctl

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/dmitrijs2005/qsolog/internal/logging"
	"github.com/dmitrijs2005/qsolog/internal/server/config"
	"github.com/dmitrijs2005/qsolog/internal/server/repositories/repomanager"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// openDB is swapped in tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type rootOptions struct {
	configFile string
	dsn        string
	logLevel   string
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "qsologctl",
		Short:        "Operator tooling for the QSO log server",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "JSON config file")
	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "Database DSN (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (overrides config)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// loadConfig reads the server configuration the same way the server does,
// minus its command-line flags, then applies the persistent overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var args []string
	if o.configFile != "" {
		args = []string{"-c", o.configFile}
	}

	cfg, err := config.Load(args)
	if err != nil {
		return nil, err
	}
	if o.dsn != "" {
		cfg.DatabaseDSN = o.dsn
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

func (o *rootOptions) logger(cfg *config.Config, w io.Writer) logging.Logger {
	return logging.New(w, cfg.LogLevel, cfg.LogFormat)
}

// withDB opens the configured database, hands it to fn and closes it.
func (o *rootOptions) withDB(cfg *config.Config, fn func(db *sql.DB, rm *repomanager.PostgresRepositoryManager) error) error {
	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer db.Close()

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	return fn(db, rm)
}
