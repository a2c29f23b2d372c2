package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/kingrea/procflow/internal/suite"
)

func newSuiteCommand(c *cli) *cobra.Command {
	var (
		flags  runtimeFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "suite <file|name>",
		Short: "Run a suite of processes in order",
		Long: `Run a suite of processes in order.

The argument is a path to a suite YAML file or the name of a file under
.procflow/suites (with or without the .yaml extension).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			def, err := loadSuite(s.cfg.SuitesDir(), args[0])
			if err != nil {
				return err
			}
			if err := def.CheckProcesses(func(id string) bool {
				_, err := s.registry.Lookup(id)
				return err == nil
			}); err != nil {
				return err
			}
			runner, cleanup, err := s.newRunner(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			s.logger.Printf("suite: starting %s (%d steps)", def.ID, len(def.Steps))
			report, err := suite.Run(cmd.Context(), runner, def)
			if err != nil {
				return err
			}
			s.logger.Printf("suite: %s finished success=%t failed=%v", def.ID, report.Success, report.Failed())
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				printSuiteReport(cmd, report)
			}
			if !report.Success {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func loadSuite(suitesDir, arg string) (suite.Definition, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return suite.LoadFile(arg)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return suite.Definition{}, fmt.Errorf("stat %s: %w", arg, err)
	}
	return suite.LoadRelative(suitesDir, arg)
}

func printSuiteReport(cmd *cobra.Command, report suite.Report) {
	rows := make([][]string, 0, len(report.Steps))
	for _, step := range report.Steps {
		detail := ""
		if step.Result.Error != nil {
			detail = step.Result.Error.Error()
		}
		duration := ""
		if step.Status != suite.StepSkipped {
			duration = formatDuration(step.Result.Duration)
		}
		rows = append(rows, []string{step.StepID, step.Process, styleStatus(string(step.Status)), duration, step.Result.Metadata.RunID, detail})
	}
	status := "succeeded"
	if !report.Success {
		status = "failed"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s  %s\n", headingStyle.Render(report.SuiteID), styleStatus(status), mutedStyle.Render(formatDuration(report.Duration)))
	fmt.Fprintln(out, renderTable([]string{"STEP", "PROCESS", "STATUS", "DURATION", "RUN", "DETAIL"}, rows))
}
