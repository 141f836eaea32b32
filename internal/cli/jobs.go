package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/RevCBH/unitd/internal/client"
	"github.com/RevCBH/unitd/internal/cli/tui"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	waitingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// NewJobsCmd creates the jobs command
func NewJobsCmd(a *App) *cobra.Command {
	var watch bool
	var showHistory bool
	var unitFilter string
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List installed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(a.addr)

			if watch {
				return tui.Run(cmd.Context(), c)
			}

			if showHistory {
				entries, err := c.History(cmd.Context(), unitFilter, limit)
				if err != nil {
					return err
				}
				fmt.Println(headerStyle.Render(fmt.Sprintf("%-6s %-24s %-12s %-12s %s",
					"JOB", "UNIT", "TYPE", "RESULT", "FINISHED")))
				for _, e := range entries {
					style := doneStyle
					if e.Result != "done" {
						style = failStyle
					}
					fmt.Printf("%-6d %-24s %-12s %-12s %s\n",
						e.JobID, e.Unit, e.JobType,
						style.Render(fmt.Sprintf("%-12s", e.Result)),
						e.FinishedAt.Format("15:04:05"))
				}
				return nil
			}

			jobs, err := c.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("No jobs installed.")
				return nil
			}

			fmt.Println(headerStyle.Render(fmt.Sprintf("%-6s %-24s %-12s %s",
				"JOB", "UNIT", "TYPE", "STATE")))
			for _, j := range jobs {
				style := waitingStyle
				if j.State == "running" {
					style = runningStyle
				}
				fmt.Printf("%-6d %-24s %-12s %s\n",
					j.ID, j.Unit, j.Type, style.Render(j.State))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Watch jobs live")
	cmd.Flags().BoolVar(&showHistory, "history", false, "Show finished jobs")
	cmd.Flags().StringVar(&unitFilter, "unit", "", "Filter history by unit")
	cmd.Flags().IntVar(&limit, "limit", 50, "History entries to show")
	return cmd
}

// NewInstallCmd creates one of the start/stop/restart/reload commands
func NewInstallCmd(a *App, jobType, short string) *cobra.Command {
	var mode string
	var ignoreOrder bool

	cmd := &cobra.Command{
		Use:   jobType + " UNIT",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(a.addr)
			view, err := c.Install(cmd.Context(), client.InstallRequest{
				Unit:        args[0],
				Type:        jobType,
				Mode:        mode,
				IgnoreOrder: ignoreOrder,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Installed job %d (%s %s)\n", view.ID, view.Type, view.Unit)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "replace",
		"Job mode (fail, replace, replace-irreversibly)")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false,
		"Bypass ordering dependencies")
	return cmd
}

// NewCancelCmd creates the cancel command
func NewCancelCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB",
		Short: "Cancel an installed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			c := client.New(a.addr)
			if err := c.Cancel(cmd.Context(), uint32(id)); err != nil {
				return err
			}
			fmt.Printf("Canceled job %d\n", id)
			return nil
		},
	}
}
