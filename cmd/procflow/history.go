package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kingrea/procflow/internal/store"
)

func newHistoryCommand(c *cli) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or show one run's phases and artifacts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			db, err := store.Open(cmd.Context(), s.cfg.HistoryPath(), s.logger)
			if err != nil {
				return err
			}
			defer db.Close()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				run, err := db.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				phases, err := db.RunPhases(cmd.Context(), run.RunID)
				if err != nil {
					return err
				}
				artifacts, err := db.RunArtifacts(cmd.Context(), run.RunID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, map[string]any{"run": run, "phases": phases, "artifacts": artifacts})
				}
				fmt.Fprintf(out, "%s %s  %s  %s\n", headingStyle.Render(run.ProcessID), mutedStyle.Render(run.RunID), styleStatus(string(run.Status)), mutedStyle.Render(formatDuration(run.Duration)))
				if run.FailureMessage != "" {
					fmt.Fprintf(out, "%s [%s] %s\n", statusStyles["failed"].Render("error:"), run.FailureKind, run.FailureMessage)
				}
				rows := make([][]string, 0, len(phases))
				for _, phase := range phases {
					rows = append(rows, []string{phase.Name, string(phase.Status), formatDuration(phase.Duration()), phase.Group, phase.Error})
				}
				fmt.Fprintln(out, renderTable([]string{"PHASE", "STATUS", "DURATION", "GROUP", "ERROR"}, rows))
				for _, a := range artifacts {
					fmt.Fprintf(out, "  %s %s\n", a.Path, mutedStyle.Render(a.Format))
				}
				return nil
			}

			runs, err := db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("No runs recorded yet."))
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.ProcessID,
					styleStatus(string(run.Status)),
					formatDuration(run.Duration),
					run.RunID,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"STARTED", "PROCESS", "STATUS", "DURATION", "RUN"}, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
