package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"scrobble/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				runningKind := statusError
				if resp.Running {
					runningKind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, yesNo(resp.Running), colorize))
				fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, strconv.Itoa(resp.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Started", statusInfo, resp.StartedAt.Local().Format(time.RFC1123), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, resp.SocketPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Lock", statusInfo, resp.LockPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("History DB", statusInfo, resp.HistoryDBPath, colorize))

				authKind := statusWarn
				authDetail := "not logged into Trakt; run `scrobble login`"
				if resp.Authenticated {
					authKind = statusOK
					authDetail = "logged into Trakt"
				}
				fmt.Fprintln(stdout, renderStatusLine("Trakt", authKind, authDetail, colorize))
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the scrobble daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Stop request sent")
				return nil
			})
		},
	}
}
