// Package cli wires the unitd commands
package cli

import (
	"github.com/spf13/cobra"
)

// App represents the CLI application with all wired dependencies
type App struct {
	rootCmd *cobra.Command

	// Persistent flags
	addr       string
	configPath string

	// Version information
	version string
	commit  string
	date    string
}

// New creates a new CLI application
func New() *App {
	app := &App{}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// SetVersion sets the version string for the version command
func (a *App) SetVersion(version, commit, date string) {
	a.version = version
	a.commit = commit
	a.date = date
}

// setupRootCmd configures the root Cobra command
func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "unitd",
		Short: "Unit manager job engine",
		Long: `unitd coordinates jobs against a dependency graph of units:
merging conflicting intents, sequencing work along ordering edges and
propagating failures along requirement edges.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.rootCmd.PersistentFlags().StringVar(&a.addr, "addr", "127.0.0.1:7717",
		"Daemon API address")
	a.rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "",
		"Path to config file")

	a.rootCmd.AddCommand(
		NewDaemonCmd(a),
		NewDemoCmd(a),
		NewJobsCmd(a),
		NewInstallCmd(a, "start", "Start a unit"),
		NewInstallCmd(a, "stop", "Stop a unit"),
		NewInstallCmd(a, "restart", "Restart a unit"),
		NewInstallCmd(a, "reload", "Reload a unit"),
		NewCancelCmd(a),
		NewVersionCmd(a),
	)
}
