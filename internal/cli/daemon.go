package cli

import (
	"github.com/spf13/cobra"

	"github.com/RevCBH/unitd/internal/config"
	"github.com/RevCBH/unitd/internal/daemon"
)

// NewDaemonCmd creates the daemon command
func NewDaemonCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the unit manager daemon",
		Long: `Runs the manager loop, the introspection API and the history
journal. Units are registered by the embedding process; a bare daemon
starts with an empty unit set. SIGHUP performs a live reload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg)
			if err != nil {
				return err
			}
			return d.Run(cmd.Context())
		},
	}
}
