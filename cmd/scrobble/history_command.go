package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scrobble/internal/history"
	"scrobble/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent scrobble history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(stdout, "History is empty")
					return nil
				}

				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					rows = append(rows, []string{
						entry.CreatedAt.Local().Format("2006-01-02 15:04"),
						historyActionLabel(entry.Action),
						entry.Title,
						entry.MediaType,
						strconv.Itoa(entry.Confidence),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Time", "Action", "Title", "Type", "Confidence"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	return cmd
}

func historyActionLabel(action string) string {
	switch action {
	case history.ActionScrobbleStarted:
		return "scrobbled"
	case history.ActionSkippedLowScore:
		return "skipped (low confidence)"
	case history.ActionNotFoundOnCatalog:
		return "not found"
	default:
		return action
	}
}
