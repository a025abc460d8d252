package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gcalfeed/internal/calendar"
	"github.com/teemow/gcalfeed/internal/icsexport"
	"github.com/teemow/gcalfeed/internal/logging"
)

type eventsOptions struct {
	q          string
	startMin   string
	startMax   string
	maxResults int
	orderBy    string
	sortOrder  string
	follow     time.Duration
	output     string
}

const (
	outputTable = "table"
	outputICS   = "ics"
)

func newEventsCmd(root *rootOptions) *cobra.Command {
	opts := &eventsOptions{}

	cmd := &cobra.Command{
		Use:   "events [feed]",
		Short: "Query the events of a calendar feed",
		Long: `Query the events of a calendar feed. Without a feed argument the
configured default feed is used.

With --follow the feed is polled at the given interval and events updated
since the previous poll are printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.query(time.Local)
			if err != nil {
				return err
			}
			switch opts.output {
			case outputTable:
			case outputICS:
				if opts.follow > 0 {
					return fmt.Errorf("--output %s cannot be combined with --follow", outputICS)
				}
			default:
				return fmt.Errorf("--output must be %s or %s", outputTable, outputICS)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

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
			cal := a.client.Calendar(a.feed(feed))

			if opts.follow <= 0 {
				events, err := cal.Events(ctx, q)
				if err != nil {
					return err
				}
				if opts.output == outputICS {
					return icsexport.Write(cmd.OutOrStdout(), events, time.Now())
				}
				return printEvents(cmd.OutOrStdout(), events)
			}
			return followEvents(ctx, cmd.OutOrStdout(), a.logger, cal, q, opts.follow)
		},
	}

	cmd.Flags().StringVar(&opts.q, "q", "", "Full-text query")
	cmd.Flags().StringVar(&opts.startMin, "start-min", "", "Only events ending after this time")
	cmd.Flags().StringVar(&opts.startMax, "start-max", "", "Only events starting before this time")
	cmd.Flags().IntVar(&opts.maxResults, "max-results", 0, "Maximum number of events (0 uses the service default)")
	cmd.Flags().StringVar(&opts.orderBy, "orderby", "", "Sort key, e.g. starttime")
	cmd.Flags().StringVar(&opts.sortOrder, "sortorder", "", "Sort order: ascending or descending")
	cmd.Flags().DurationVar(&opts.follow, "follow", 0, "Poll the feed at this interval until interrupted")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table or ics")

	return cmd
}

func (o *eventsOptions) query(loc *time.Location) (calendar.Query, error) {
	startMin, _, err := parseTimeFlag(o.startMin, loc)
	if err != nil {
		return calendar.Query{}, fmt.Errorf("--start-min: %w", err)
	}
	startMax, _, err := parseTimeFlag(o.startMax, loc)
	if err != nil {
		return calendar.Query{}, fmt.Errorf("--start-max: %w", err)
	}
	switch o.sortOrder {
	case "", calendar.SortAscending, calendar.SortDescending:
	default:
		return calendar.Query{}, fmt.Errorf("--sortorder must be %s or %s", calendar.SortAscending, calendar.SortDescending)
	}
	if o.maxResults < 0 {
		return calendar.Query{}, fmt.Errorf("--max-results must not be negative")
	}

	return calendar.Query{
		Q:          o.q,
		MaxResults: o.maxResults,
		OrderBy:    o.orderBy,
		SortOrder:  o.sortOrder,
		StartMin:   startMin,
		StartMax:   startMax,
	}, nil
}

// followEvents prints the events matching q, then polls for events updated
// since the previous poll until ctx is done.
func followEvents(ctx context.Context, w io.Writer, logger *slog.Logger, cal *calendar.Calendar, q calendar.Query, interval time.Duration) error {
	since := time.Now()
	events, err := cal.Events(ctx, q)
	if err != nil {
		return err
	}
	if err := printEvents(w, events); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		poll := q
		poll.UpdatedMin = since
		next := time.Now()

		events, err := cal.Events(ctx, poll)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("poll failed", logging.Feed(cal.FeedURL()), logging.Err(err))
			continue
		}
		since = next
		if len(events) == 0 {
			continue
		}
		if err := printEvents(w, events); err != nil {
			return err
		}
	}
}

func printEvents(w io.Writer, events []*calendar.Event) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			formatEventTime(ev.Start, ev.AllDay),
			formatEventTime(ev.End, ev.AllDay),
			ev.Title,
			ev.Location,
			ev.EditURL(),
		)
	}
	return tw.Flush()
}

func formatEventTime(t time.Time, allDay bool) string {
	if t.IsZero() {
		return "-"
	}
	if allDay {
		return t.Format(time.DateOnly)
	}
	return t.Local().Format("2006-01-02 15:04")
}
