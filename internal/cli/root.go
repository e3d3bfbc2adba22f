// Package cli defines the cobra command tree for avisosctl.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lorrc/avisos-backend/internal/client"
	"github.com/lorrc/avisos-backend/internal/infrastructure/logging"
)

var (
	flagFormat   string
	flagServer   string
	flagLogLevel string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "avisosctl",
		Short:         "Follow and comment on weekly announcements",
		Long:          "Command line client for the avisos API: log in, post comments and watch an announcement's comments live.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagServer, "server", "", "server URL (default: $AVISOS_SERVER, config or http://localhost:8080)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newCommentsCmd(),
		newSearchCmd(),
		newPostCmd(),
		newWatchCmd(),
	)

	return root
}

// newAPIClient creates a REST client for the configured server and token.
func newAPIClient() *client.APIClient {
	return client.NewAPIClient(getServerURL(), getToken())
}

// newLogger builds the CLI logger. Logs go to stderr so they never mix with
// command output.
func newLogger() *slog.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = flagLogLevel
	cfg.Format = "text"
	cfg.Output = os.Stderr
	cfg.ServiceName = "avisosctl"
	return logging.NewLogger(cfg)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}
