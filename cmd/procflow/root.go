package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kingrea/procflow/internal/config"
	"github.com/kingrea/procflow/internal/logging"
	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/processes"
)

// cli carries state shared by every subcommand.
type cli struct {
	v *viper.Viper
}

// session is the per-invocation runtime: loaded config, process log and the
// builtin registry.
type session struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *process.Registry
}

func (s *session) Close() {
	if s != nil && s.logger != nil {
		_ = s.logger.Close()
	}
}

// exitError carries a process exit code without printing an error line; the
// command has already reported the outcome.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func exitCode(err error) (int, bool) {
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code, true
	}
	return 0, false
}

func newRootCommand() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix("PROCFLOW")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "procflow",
		Short:         "Run gated compliance and security workflows",
		Long:          "procflow drives sequential compliance and security workflows, delegating each phase to an executor and emitting checkpoints and breakpoints for human review.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("project", "C", "", "project directory (defaults to the working directory)")
	root.PersistentFlags().BoolP("verbose", "v", false, "echo the process log to stderr")
	_ = c.v.BindPFlag("project", root.PersistentFlags().Lookup("project"))
	_ = c.v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(
		newInitCommand(c),
		newListCommand(c),
		newDescribeCommand(c),
		newRunCommand(c),
		newSuiteCommand(c),
		newHistoryCommand(c),
		newServeCommand(c),
		newWatchCommand(c),
	)
	return root
}

func (c *cli) projectDir() (string, error) {
	project := strings.TrimSpace(c.v.GetString("project"))
	if project == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		project = cwd
	}
	abs, err := filepath.Abs(project)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}
	return abs, nil
}

// open prepares .procflow, loads config and opens the process log.
func (c *cli) open(cmd *cobra.Command) (*session, error) {
	project, err := c.projectDir()
	if err != nil {
		return nil, err
	}
	if err := config.InitDir(project); err != nil {
		return nil, fmt.Errorf("init %s: %w", config.ProcflowDir, err)
	}
	cfg, err := config.NewConfig(project)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(project)
	if err != nil {
		return nil, err
	}
	if c.v.GetBool("verbose") {
		logger.Echo(cmd.ErrOrStderr())
	}
	return &session{cfg: cfg, logger: logger, registry: processes.NewRegistry()}, nil
}

// resolveProcess picks the named process, falling back to the configured
// default when no argument was given.
func (s *session) resolveProcess(args []string) (process.Process, error) {
	id := ""
	if len(args) > 0 {
		id = strings.TrimSpace(args[0])
	}
	if id == "" {
		id = s.cfg.DefaultProcess()
	}
	if id == "" {
		return nil, fmt.Errorf("a process id is required (see `procflow list`)")
	}
	return s.registry.Lookup(id)
}
