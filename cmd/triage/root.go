// cmd/triage/root.go
package main

import (
	"os"

	"github.com/Corphon/Diplomat/internal/config"
	"github.com/Corphon/Diplomat/internal/utils"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	settingsPath string
	logLevel     string
}

func (o *rootOptions) store() *config.FileSettingsStore {
	return config.NewSettingsStore(o.settingsPath, os.Getenv("DIPLOMAT_SETTINGS_SECRET"))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Flag and de-escalate toxic comments",
		Long: `triage classifies a page of comments locally, sends the undecided ones to a
Diplomat gateway for scoring, and prints each comment with its badge.

Settings are read from a YAML document (see --settings) and DIPLOMAT_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := utils.GetLogger()
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetLogLevel(utils.ParseLogLevel(opts.logLevel))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.settingsPath, "settings", config.DefaultSettingsPath(), "settings document")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "WARN", "log level (DEBUG, INFO, WARN, ERROR)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newSettingsCmd(opts))
	return cmd
}
