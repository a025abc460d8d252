package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/gcalfeed/internal/logging"
)

func newCalendarsCmd(root *rootOptions) *cobra.Command {
	var withInfo bool

	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars of the authenticated user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			calendars, err := a.client.ListCalendars(ctx)
			if err != nil {
				return err
			}

			feeds := make([]string, 0, len(calendars))
			for feed := range calendars {
				feeds = append(feeds, feed)
			}
			sort.Strings(feeds)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, feed := range feeds {
				if !withInfo {
					fmt.Fprintln(tw, feed)
					continue
				}
				info, err := calendars[feed].Info(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", feed, info.Title, info.Timezone)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&withInfo, "info", false, "Fetch title and timezone of each calendar (one request per calendar)")

	return cmd
}
