package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrobble/internal/ipc"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login [code]",
		Short: "Log into Trakt",
		Long: `Log into Trakt via OAuth.

Run without arguments to print the authorization URL. Open it in a
browser, approve access, then run the command again with the code (or
the full callback URL) Trakt hands back.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				if len(args) == 0 {
					resp, err := client.Login()
					if err != nil {
						return err
					}
					fmt.Fprintln(stdout, "Open this URL in a browser and approve access:")
					fmt.Fprintln(stdout)
					fmt.Fprintf(stdout, "  %s\n", resp.AuthorizeURL)
					fmt.Fprintln(stdout)
					fmt.Fprintln(stdout, "Then finish with: scrobble login <code>")
					return nil
				}

				resp, err := client.CompleteLogin(args[0])
				if err != nil {
					return err
				}
				if resp.Username != "" {
					fmt.Fprintf(stdout, "Logged in as %s\n", resp.Username)
				} else {
					fmt.Fprintln(stdout, "Logged in")
				}
				return nil
			})
		},
	}
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of Trakt and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Logout(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}
