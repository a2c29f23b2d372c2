package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/procflow/internal/artifact"
	"github.com/kingrea/procflow/internal/config"
	"github.com/kingrea/procflow/internal/executor"
	"github.com/kingrea/procflow/internal/gate"
	"github.com/kingrea/procflow/internal/gatebridge"
	"github.com/kingrea/procflow/internal/metrics"
	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/store"
)

// runtimeFlags select the executor and side channels for run and suite.
type runtimeFlags struct {
	executor  string
	endpoint  string
	replayDir string
	bridge    bool
	noHistory bool
}

func (f *runtimeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.executor, "executor", "", "executor kind: replay or http (defaults to config)")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "", "agent runtime URL for the http executor")
	cmd.Flags().StringVar(&f.replayDir, "replay-dir", "", "directory holding tasks/<effect>/result.json for the replay executor")
	cmd.Flags().BoolVar(&f.bridge, "bridge", false, "post checkpoints and breakpoints to the gate bridge")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "do not record the run in the history database")
}

// newRunner wires the executor, observers and notifiers for one invocation.
// The returned cleanup closes the history database.
func (s *session) newRunner(ctx context.Context, flags runtimeFlags) (*process.Runner, func(), error) {
	execCfg := s.cfg.Project.Executor
	kind := strings.ToLower(strings.TrimSpace(flags.executor))
	if kind == "" {
		kind = execCfg.Kind
	}
	endpoint := strings.TrimSpace(flags.endpoint)
	if endpoint == "" {
		endpoint = execCfg.Endpoint
	}
	replayDir := strings.TrimSpace(flags.replayDir)
	if replayDir != "" {
		abs, err := filepath.Abs(replayDir)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve replay dir: %w", err)
		}
		replayDir = abs
	}

	var factory process.ExecutorFactory
	switch kind {
	case config.ExecutorHTTP:
		if endpoint == "" {
			return nil, nil, fmt.Errorf("executor %q requires --endpoint or executor.endpoint", kind)
		}
		factory = func(process.Env) (executor.Executor, error) {
			return executor.NewHTTP(executor.HTTPConfig{
				Endpoint:    endpoint,
				Timeout:     execCfg.Timeout,
				MaxParallel: execCfg.MaxParallel,
				Logger:      s.logger,
			})
		}
	case config.ExecutorReplay:
		factory = func(env process.Env) (executor.Executor, error) {
			if env.Dir == "" {
				return nil, fmt.Errorf("replay executor needs a runs directory")
			}
			opts := []executor.ReplayOption{
				executor.WithProvenance(env.ProcessID, env.RunID),
				executor.WithMaxParallel(execCfg.MaxParallel),
				executor.WithLogger(s.logger),
			}
			if replayDir != "" {
				opts = append(opts, executor.WithResultsFrom(artifact.NewStore(replayDir)))
			}
			return executor.NewReplay(artifact.NewStore(env.Dir), opts...), nil
		}
	default:
		return nil, nil, fmt.Errorf("unknown executor %q (expected replay or http)", kind)
	}

	m := metrics.Default()
	notifiers := []gate.Notifier{m}
	if flags.bridge {
		settings := gatebridge.SettingsFromConfig(s.cfg)
		notifiers = append(notifiers, gatebridge.NewClient(settings.URL(), nil))
		s.logger.Printf("run: posting gates to %s", settings.URL())
	}
	opts := []process.RunnerOption{
		process.WithExecutorFactory(factory),
		process.WithRunsDir(s.cfg.RunsDir()),
		process.WithValidation(s.cfg.ValidateResults()),
		process.WithObserver(m),
		process.WithNotifier(gate.Multi(notifiers...)),
		process.WithLogger(s.logger),
	}

	cleanup := func() {}
	if s.cfg.HistoryEnabled() && !flags.noHistory {
		history, err := store.Open(ctx, s.cfg.HistoryPath(), s.logger)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, process.WithObserver(history))
		cleanup = func() {
			if err := history.Close(); err != nil {
				s.logger.Printf("history: close: %v", err)
			}
		}
	}
	return process.NewRunner(s.registry, opts...), cleanup, nil
}

func newRunCommand(c *cli) *cobra.Command {
	var (
		flags     runtimeFlags
		inputFile string
		sets      []string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "run [process]",
		Short: "Run a process to completion",
		Long: `Run a process to completion.

Inputs are layered: processes.inputs.<id> from config.yaml, then --input, then
each --set key=value. Exit status is 0 when the run succeeded, 2 when it
completed without meeting its success criterion and 1 when it failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			proc, err := s.resolveProcess(args)
			if err != nil {
				return err
			}
			id := proc.Info().ID
			raw, err := buildInputs(s.cfg.ProcessInputs(id), inputFile, sets)
			if err != nil {
				return err
			}
			runner, cleanup, err := s.newRunner(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer cleanup()

			s.logger.Printf("run: starting %s", id)
			res := runner.Execute(cmd.Context(), id, raw)
			s.logger.Printf("run: %s %s finished: %s", id, res.Metadata.RunID, res.Status())
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				printResult(cmd.OutOrStdout(), res, s.cfg.RunsDir())
			}
			switch res.Status() {
			case process.RunStatusSucceeded:
				return nil
			case process.RunStatusUnsuccessful:
				return &exitError{code: 2}
			default:
				return &exitError{code: 1}
			}
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "YAML or JSON file with process inputs")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "input override as key=value; dotted keys nest (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
