package main

import (
	"context"
	"fmt"

	"github.com/sifan077/shortlink/config"
	"github.com/sifan077/shortlink/internal/app/bootstrap"
	"github.com/sifan077/shortlink/internal/infra/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliEnv carries what every subcommand needs; tests swap loadConfig.
type cliEnv struct {
	loadConfig func() (*config.Config, error)
	sqlitePath string
	verbose    bool
}

func defaultEnv() *cliEnv {
	return &cliEnv{loadConfig: config.Load}
}

func newRootCmd(env *cliEnv) *cobra.Command {
	root := &cobra.Command{
		Use:           "shortlink",
		Short:         "Manage short links from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&env.sqlitePath, "sqlite", "", "use the SQLite database at this path instead of the configured driver")
	root.PersistentFlags().BoolVarP(&env.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newMigrateCmd(env),
		newCreateCmd(env),
		newListCmd(env),
		newStatsCmd(env),
		newReconcileCmd(env),
	)
	return root
}

func (e *cliEnv) config() (*config.Config, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if e.sqlitePath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.SQLitePath = e.sqlitePath
	}
	// The CLI never needs the async path or the cache.
	cfg.NATS.Enabled = false
	cfg.Redis.Enabled = false
	return cfg, nil
}

func (e *cliEnv) logger() *zap.Logger {
	level := "warn"
	if e.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Development: true, Level: level, Encoding: "console", Service: "shortlink-cli"})
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// withApp builds the application for one command and closes it afterwards.
func (e *cliEnv) withApp(ctx context.Context, fn func(app *bootstrap.App) error) error {
	cfg, err := e.config()
	if err != nil {
		return err
	}
	log := e.logger()
	defer func() { _ = logger.Sync(log) }()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	defer app.Close()
	return fn(app)
}
