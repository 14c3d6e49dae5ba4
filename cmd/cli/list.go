package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/sifan077/shortlink/internal/app/bootstrap"
	"github.com/sifan077/shortlink/internal/app/model"
	"github.com/spf13/cobra"
)

func newListCmd(env *cliEnv) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List links, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd.Context(), func(app *bootstrap.App) error {
				var links []model.Link
				var err error
				if limit <= 0 {
					links, err = app.LinkSvc.GetAllLinks(cmd.Context())
				} else {
					links, err = app.LinkSvc.ListLinks(cmd.Context(), limit, offset)
				}
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "SLUG\tCLICKS\tCREATED\tURL")
				for _, l := range links {
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", l.Slug, l.ClickCount, l.CreatedAt.UTC().Format(time.RFC3339), l.OriginalURL)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of links, 0 lists all")
	cmd.Flags().IntVar(&offset, "offset", 0, "links to skip")
	return cmd
}
