package cli

import (
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type app struct {
	cfg    config.Config
	logger zerolog.Logger

	flagLogLevel string
}

// NewRootCmd creates the root cobra command for the authsession CLI.
func NewRootCmd(cfg config.Config) *cobra.Command {
	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:   "authsession",
		Short: "Manage the catalog login session",
		Long:  "authsession logs in to the catalog API, keeps the session renewed and controls whether credentials are remembered.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = logging.New(a.flagLogLevel, cfg.GetEnv(), cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.flagLogLevel, "log-level", cfg.GetLogLevel(), "Log level (debug, info, warn, error)")

	root.AddCommand(
		a.newLoginCmd(),
		a.newStatusCmd(),
		a.newLogoutCmd(),
		a.newConsentCmd(),
		a.newWatchCmd(),
	)
	return root
}
