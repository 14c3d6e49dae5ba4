package main

import (
	"fmt"
	"strings"

	"github.com/sifan077/shortlink/internal/app/bootstrap"
	"github.com/spf13/cobra"
)

func newCreateCmd(env *cliEnv) *cobra.Command {
	var longURL string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Shorten a URL and print the slug.",
		Example: `  shortlink create --url="https://www.example.com/search?q=go"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(cmd.Context(), func(app *bootstrap.App) error {
				link, err := app.LinkSvc.CreateLink(cmd.Context(), longURL)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Slug:      %s\n", link.Slug)
				fmt.Fprintf(out, "Short URL: %s/%s\n", strings.TrimRight(app.Config.App.BaseURL, "/"), link.Slug)
				fmt.Fprintf(out, "Target:    %s\n", link.OriginalURL)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&longURL, "url", "u", "", "URL to shorten (required)")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
