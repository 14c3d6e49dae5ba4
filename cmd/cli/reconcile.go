package main

import (
	"fmt"

	"github.com/sifan077/shortlink/internal/app/bootstrap"
	"github.com/sifan077/shortlink/internal/app/service"
	"github.com/spf13/cobra"
)

func newReconcileCmd(env *cliEnv) *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare click_count with stored clicks once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd.Context(), func(app *bootstrap.App) error {
				reconcileCfg := app.Config.Reconciler
				reconcileCfg.Repair = repair
				r := service.NewCounterReconciler(reconcileCfg, service.CounterReconcilerDeps{
					Store:   app.Store,
					Cache:   app.Cache,
					Logger:  app.Logger,
					Metrics: app.Metrics,
				})

				report, err := r.Reconcile(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "checked %d links, %d drifted\n", report.Checked, len(report.Drifted))
				for _, d := range report.Drifted {
					fmt.Fprintf(out, "  %s: recorded=%d counted=%d repaired=%t\n", d.Slug, d.Recorded, d.Counted, d.Repaired)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "write the counted value back")
	return cmd
}
