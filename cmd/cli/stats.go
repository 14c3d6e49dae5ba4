package main

import (
	"fmt"

	"github.com/sifan077/shortlink/internal/app/bootstrap"
	"github.com/spf13/cobra"
)

func newStatsCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:     "stats <slug>",
		Short:   "Show click analytics for a short link.",
		Example: "  shortlink stats xyz123",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd.Context(), func(app *bootstrap.App) error {
				ctx := cmd.Context()
				link, err := app.LinkSvc.GetLinkBySlug(ctx, args[0])
				if err != nil {
					return err
				}
				summary, err := app.Analytics.GetAnalytics(ctx, link)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Slug:         %s\n", summary.Slug)
				fmt.Fprintf(out, "URL:          %s\n", summary.OriginalURL)
				fmt.Fprintf(out, "Total clicks: %d\n", summary.TotalClicks)
				for _, day := range summary.DailyClicks {
					fmt.Fprintf(out, "  %s  %d\n", day.Date, day.Count)
				}
				for host, n := range summary.Referrers {
					fmt.Fprintf(out, "  referrer %s: %d\n", host, n)
				}
				return nil
			})
		},
	}
}
