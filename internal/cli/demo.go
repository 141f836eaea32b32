package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/RevCBH/unitd/internal/config"
	"github.com/RevCBH/unitd/internal/daemon"
	"github.com/RevCBH/unitd/internal/job"
	"github.com/RevCBH/unitd/internal/unit"
)

// NewDemoCmd creates the demo command: a daemon preloaded with simulated
// units wired into a small dependency graph, so the engine can be
// exercised end to end without real unit kinds.
func NewDemoCmd(a *App) *cobra.Command {
	var latency time.Duration

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the daemon with simulated units",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}

			d, err := daemon.New(cfg)
			if err != nil {
				return err
			}

			registerDemoUnits(d, latency)
			return d.Run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&latency, "latency", 500*time.Millisecond,
		"Simulated operation latency")
	return cmd
}

// registerDemoUnits builds a graph the standard scenarios exercise:
// network <- database <- app, with app required by database and a logger
// unit nobody depends on
func registerDemoUnits(d *daemon.Daemon, latency time.Duration) {
	mgr := d.Manager()

	sim := func(name, desc string) *unit.Unit {
		u, b := unit.NewSim(name, desc, latency)
		b.Done = func(ok bool) {
			res := job.ResultDone
			if !ok {
				res = job.ResultFailed
			}
			// Best effort: the job may already be gone
			_ = mgr.FinishUnitJob(name, res, true)
		}
		return u
	}

	network := sim("network.service", "Simulated network stack")
	database := sim("database.service", "Simulated database server")
	app := sim("app.service", "Simulated application")
	logger := sim("logger.service", "Simulated log collector")

	database.After = []*unit.Unit{network}
	network.Before = []*unit.Unit{database}
	app.After = []*unit.Unit{database}
	database.Before = []*unit.Unit{app}

	database.RequiredBy = []*unit.Unit{app}
	app.JobTimeout = time.Minute

	for _, u := range []*unit.Unit{network, database, app, logger} {
		d.AddUnit(u)
	}
}
