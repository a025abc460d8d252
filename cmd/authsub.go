package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/gcalfeed/internal/auth"
	"github.com/teemow/gcalfeed/internal/transport"
)

func newAuthSubCmd(root *rootOptions) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "authsub",
		Short: "Manage AuthSub tokens",
		Long: `Obtain and manage AuthSub session tokens. A session token is used by
setting auth.token in the configuration or GCAL_AUTH_TOKEN.

  1. gcalfeed authsub url --next <your-url>   (visit the printed URL)
  2. gcalfeed authsub exchange <redirect-url-or-token>
  3. export GCAL_AUTH_TOKEN=<session-token>`,
	}

	cmd.PersistentFlags().StringVar(&baseURL, "accounts-url", auth.DefaultAuthSubBaseURL, "Base URL of the AuthSub handlers")

	newClient := func(cmd *cobra.Command) (*auth.AuthSub, error) {
		s, err := loadSettings(root, cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		httpClient, err := transport.NewHTTPClient(nil, s.proxy())
		if err != nil {
			return nil, err
		}
		return &auth.AuthSub{
			BaseURL:    baseURL,
			HTTPClient: httpClient,
			Logger:     s.logger,
		}, nil
	}

	cmd.AddCommand(newAuthSubURLCmd(&baseURL))
	cmd.AddCommand(&cobra.Command{
		Use:   "exchange <redirect-url|one-time-token>",
		Short: "Exchange a one-time token for a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := oneTimeToken(args[0])
			if err != nil {
				return err
			}
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			session, err := client.ExchangeSessionToken(cmd.Context(), token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), session)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <session-token>",
		Short: "Revoke a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := client.RevokeSessionToken(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "revoked")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "info <session-token>",
		Short: "Show the target, scope and security of a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			info, err := client.TokenInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(info))
			for k := range info {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, info[k])
			}
			return nil
		},
	})

	return cmd
}

func newAuthSubURLCmd(baseURL *string) *cobra.Command {
	var (
		next    string
		scope   string
		secure  bool
		session bool
	)

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the URL that asks the user to grant access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if next == "" {
				return fmt.Errorf("--next is required")
			}
			client := &auth.AuthSub{BaseURL: *baseURL}
			fmt.Fprintln(cmd.OutOrStdout(), client.RequestURL(next, scope, secure, session))
			return nil
		},
	}

	cmd.Flags().StringVar(&next, "next", "", "URL the user is redirected to with the one-time token (required)")
	cmd.Flags().StringVar(&scope, "scope", auth.CalendarScope, "Feed scope to request")
	cmd.Flags().BoolVar(&secure, "secure", false, "Request a secure token")
	cmd.Flags().BoolVar(&session, "session", true, "Request a token that can be exchanged for a session token")

	return cmd
}

// oneTimeToken accepts either the redirect URL or the bare token.
func oneTimeToken(arg string) (string, error) {
	if strings.Contains(arg, "?") {
		return auth.OneTimeToken(arg)
	}
	return arg, nil
}
