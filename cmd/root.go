package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by all subcommands.
type rootOptions struct {
	configPath  string
	debug       bool
	logFormat   string
	metricsAddr string
}

// rootCmd represents the base command for the gcalfeed application
var rootCmd = newRootCmd()

// version will be set by main
var version = "dev"

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gcalfeed",
		Short: "Read and edit calendars over the GData calendar feed protocol",
		Long: `gcalfeed talks to calendar feeds using ClientLogin, AuthSub or OAuth2
credentials. It lists calendars, queries and polls events, and creates or
deletes single events.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (overrides the config file)")
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs (e.g. :9090)")

	cmd.AddCommand(newCalendarsCmd(opts))
	cmd.AddCommand(newEventsCmd(opts))
	cmd.AddCommand(newAddCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newAuthSubCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gcalfeed version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
