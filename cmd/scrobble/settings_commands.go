package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"scrobble/internal/ipc"
	"scrobble/internal/settings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and update daemon settings",
	}

	settingsCmd.AddCommand(newSettingsGetCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))

	return settingsCmd
}

func newSettingsGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show effective settings (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetSettings()
				if err != nil {
					return err
				}

				rows := [][]string{
					{"Gemini API key", settings.Mask(resp.GeminiAPIKey)},
					{"Trakt client ID", settings.Mask(resp.TraktClientID)},
					{"Trakt client secret", settings.Mask(resp.TraktClientSecret)},
					{"Trakt login", yesNo(resp.Authenticated)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Setting", "Value"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var geminiKey string
	var traktID string
	var traktSecret string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update stored settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req ipc.SaveSettingsRequest
			if cmd.Flags().Changed("gemini-api-key") {
				req.GeminiAPIKey = &geminiKey
			}
			if cmd.Flags().Changed("trakt-client-id") {
				req.TraktClientID = &traktID
			}
			if cmd.Flags().Changed("trakt-client-secret") {
				req.TraktClientSecret = &traktSecret
			}
			if req.GeminiAPIKey == nil && req.TraktClientID == nil && req.TraktClientSecret == nil {
				return errors.New("nothing to update; pass at least one of --gemini-api-key, --trakt-client-id, --trakt-client-secret")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SaveSettings(req); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&geminiKey, "gemini-api-key", "", "Gemini API key for content identification")
	cmd.Flags().StringVar(&traktID, "trakt-client-id", "", "Trakt application client ID")
	cmd.Flags().StringVar(&traktSecret, "trakt-client-secret", "", "Trakt application client secret")
	return cmd
}
