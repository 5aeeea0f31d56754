// cmd/triage/settings.go
package main

import (
	"fmt"
	"io"

	"github.com/Corphon/Diplomat/internal/models"
	"github.com/spf13/cobra"
)

func newSettingsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the persisted settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := root.store()
			settings, err := store.Load()
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), store.Path(), settings)
			return nil
		},
	})

	cmd.AddCommand(newToggleCmd(root, "enable", "Turn Diplomat mode on", true))
	cmd.AddCommand(newToggleCmd(root, "disable", "Turn Diplomat mode off", false))

	return cmd
}

func newToggleCmd(root *rootOptions, use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := root.store()
			if err := store.SetEnabled(enabled); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enabled: %t (%s)\n", enabled, store.Path())
			return nil
		},
	}
}

func printSettings(w io.Writer, path string, s models.Settings) {
	apiKey := ""
	if s.LLMAPIKey != "" {
		apiKey = "********"
	}
	fmt.Fprintf(w, "file:              %s\n", path)
	fmt.Fprintf(w, "enabled:           %t\n", s.Enabled)
	fmt.Fprintf(w, "toxicityThreshold: %g\n", s.ToxicityThreshold)
	fmt.Fprintf(w, "maxComments:       %d\n", s.MaxComments)
	fmt.Fprintf(w, "backendUrl:        %s\n", s.BackendURL)
	fmt.Fprintf(w, "llmBaseUrl:        %s\n", s.LLMBaseURL)
	fmt.Fprintf(w, "llmModel:          %s\n", s.LLMModel)
	fmt.Fprintf(w, "llmApiKey:         %s\n", apiKey)
}
