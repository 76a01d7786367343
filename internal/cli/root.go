package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"archtrack/internal/api"
	"archtrack/internal/config"
	"archtrack/internal/ui"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "archtrack",
	Short: "Terminal client for the archival task tracker",
	Long: `archtrack is a terminal client for tracking departmental archival
tasks: creating them, walking them through approval, commenting on them
and browsing the archives.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}

		client := api.New(cfg.ServerURL)
		if cfg.AuthToken != "" {
			client.SetToken(cfg.AuthToken)
		}

		app := ui.NewApp(cfg, client)
		p := tea.NewProgram(app, tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

// SetVersion wires the build version into the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides config)")
}
