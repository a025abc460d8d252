package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/gcalfeed/internal/logging"
)

func newDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <edit-url>",
		Short: "Delete an event",
		Long: `Delete the event at the given edit URL, as printed by "events" and
"add". The event is fetched first so the delete carries its current version.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			ev, err := a.client.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.client.Delete(ctx, ev); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", ev.Title)
			return nil
		},
	}
}
