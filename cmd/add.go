package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gcalfeed/internal/calendar"
	"github.com/teemow/gcalfeed/internal/logging"
)

type addOptions struct {
	title       string
	description string
	where       string
	start       string
	end         string
	allDay      bool
	tentative   bool
	visibility  string
}

func newAddCmd(root *rootOptions) *cobra.Command {
	opts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add [feed]",
		Short: "Create an event",
		Long: `Create an event in a calendar feed. Without a feed argument the
configured default feed is used. Times without a zone are read in local time;
a date-only --start without --end creates an all-day event.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.title == "" {
				return fmt.Errorf("--title is required")
			}
			start, end, allDay, err := eventWindow(opts.start, opts.end, opts.allDay, time.Local)
			if err != nil {
				return err
			}
			visibility, err := visibilityToken(opts.visibility)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(ctx); err != nil {
					a.logger.Warn("shutdown failed", logging.Err(err))
				}
			}()

			var feed string
			if len(args) == 1 {
				feed = args[0]
			}

			ev := a.client.NewEvent(a.client.Calendar(a.feed(feed)))
			ev.Title = opts.title
			ev.Description = opts.description
			ev.Location = opts.where
			ev.Start = start
			ev.End = end
			ev.AllDay = allDay
			ev.Visibility = visibility
			if opts.tentative {
				ev.EventStatus = calendar.EventTentative
			}

			if err := a.client.Save(ctx, ev); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ev.EditURL())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "Event title (required)")
	cmd.Flags().StringVar(&opts.description, "desc", "", "Event description")
	cmd.Flags().StringVar(&opts.where, "where", "", "Event location")
	cmd.Flags().StringVar(&opts.start, "start", "", "Start time (required)")
	cmd.Flags().StringVar(&opts.end, "end", "", "End time (default: one hour after start, or one day for all-day events)")
	cmd.Flags().BoolVar(&opts.allDay, "all-day", false, "Create an all-day event")
	cmd.Flags().BoolVar(&opts.tentative, "tentative", false, "Mark the event tentative instead of confirmed")
	cmd.Flags().StringVar(&opts.visibility, "visibility", "default", "Visibility: default, public, private or confidential")

	return cmd
}

func visibilityToken(name string) (string, error) {
	switch name {
	case "", "default":
		return calendar.VisibilityDefault, nil
	case "public":
		return calendar.VisibilityPublic, nil
	case "private":
		return calendar.VisibilityPrivate, nil
	case "confidential":
		return calendar.VisibilityConfidential, nil
	default:
		return "", fmt.Errorf("invalid visibility %q", name)
	}
}
