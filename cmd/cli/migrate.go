package main

import (
	"fmt"

	"github.com/sifan077/shortlink/internal/app/bootstrap"
	"github.com/spf13/cobra"
)

func newMigrateCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.config()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenDatabase(cmd.Context(), cfg, env.logger())
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}
