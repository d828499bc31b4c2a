package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scrobble/internal/ipc"
	"scrobble/internal/session"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the current watch session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetState()
				if err != nil {
					return err
				}
				renderSession(cmd.OutOrStdout(), resp.Session)
				return nil
			})
		},
	}
}

func newConfirmCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: "Confirm the current match",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ConfirmMatch()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintln(stdout, "Match confirmed")
				renderSession(stdout, resp.Session)
				return nil
			})
		},
	}
}

func newCorrectCommand(ctx *commandContext) *cobra.Command {
	var mediaType string
	var season int
	var episode int

	cmd := &cobra.Command{
		Use:   "correct <title>",
		Short: "Correct the identification and re-match",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.CorrectMatchRequest{
				Title:     strings.Join(args, " "),
				MediaType: mediaType,
			}
			if cmd.Flags().Changed("season") {
				req.Season = &season
			}
			if cmd.Flags().Changed("episode") {
				req.Episode = &episode
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CorrectMatch(req)
				if err != nil {
					return err
				}
				renderSession(cmd.OutOrStdout(), resp.Session)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&mediaType, "type", "t", "", "Media type (movie or show)")
	cmd.Flags().IntVarP(&season, "season", "s", 0, "Season number")
	cmd.Flags().IntVarP(&episode, "episode", "e", 0, "Episode number")
	return cmd
}

func newSkipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip",
		Short: "Abandon the current session without scrobbling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SkipScrobble(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Session skipped")
				return nil
			})
		},
	}
}

func renderSession(w io.Writer, s session.WatchSession) {
	colorize := shouldColorize(w)

	kind := statusInfo
	switch s.State {
	case session.StateScrobbling:
		kind = statusOK
	case session.StatePaused:
		kind = statusWarn
	case session.StateError:
		kind = statusError
	}

	fmt.Fprintln(w, renderStatusLine("State", kind, string(s.State), colorize))
	if s.State == session.StateIdle && s.Error == "" {
		return
	}
	if s.Page.Title != "" {
		fmt.Fprintln(w, renderStatusLine("Page", statusInfo, s.Page.Title, colorize))
	}
	if id := s.Identification; id != nil && id.Title != "" {
		detail := fmt.Sprintf("%s (%s, confidence %d)", id.Title, id.Type, id.Confidence)
		fmt.Fprintln(w, renderStatusLine("Identified", statusInfo, detail, colorize))
		if id.IsEpisode() {
			fmt.Fprintln(w, renderStatusLine("Episode", statusInfo, fmt.Sprintf("S%02dE%02d", *id.Season, *id.Episode), colorize))
		}
	}
	if s.MediaItem != nil {
		fmt.Fprintln(w, renderStatusLine("Match", statusOK, s.MediaItem.Title(), colorize))
	}
	if s.Active() {
		fmt.Fprintln(w, renderStatusLine("Progress", statusInfo, strconv.Itoa(s.Progress)+"%", colorize))
	}
	fmt.Fprintln(w, renderStatusLine("Confirmed", statusInfo, yesNo(s.ConfirmedByUser), colorize))
	if s.Error != "" {
		fmt.Fprintln(w, renderStatusLine("Error", statusError, s.Error, colorize))
	}
}
