// internal/config/config.go
//
// This package handles configuration and the .procflow directory structure.
// Every project that runs procflow gets a .procflow/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ProcflowDir is the name of the directory we create in each project
	ProcflowDir = ".procflow"

	ExecutorReplay = "replay"
	ExecutorHTTP   = "http"

	defaultExecutorTimeout = 10 * time.Minute
	defaultBridgeHost      = "127.0.0.1"
	defaultBridgePort      = 8765
)

const defaultProjectConfigYAML = `# procflow project configuration
version: 1

# How tasks are executed. replay reads pre-recorded results from the run
# directory; http posts task descriptors to an agent runtime.
executor:
  kind: replay
  # endpoint: http://127.0.0.1:9090
  timeout: 10m
  max_parallel: 4

runs:
  dir: runs
  validate_results: true

# Gate feed served by "procflow serve" and consumed by "procflow watch".
bridge:
  enabled: true
  host: 127.0.0.1
  port: 8765

history:
  enabled: true
  path: history.db

processes:
  # default: dast-scanning
  inputs: {}
`

// ExecutorConfig selects and tunes the task executor.
type ExecutorConfig struct {
	Kind        string        `yaml:"kind"`
	Endpoint    string        `yaml:"endpoint,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MaxParallel int           `yaml:"max_parallel,omitempty"`
}

// RunsConfig controls where run directories live.
type RunsConfig struct {
	Dir             string `yaml:"dir"`
	ValidateResults *bool  `yaml:"validate_results,omitempty"`
}

// BridgeConfig configures the gate bridge.
type BridgeConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// HistoryConfig configures the SQLite run history.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path"`
}

// ProcessesConfig carries per-process input presets.
type ProcessesConfig struct {
	Default string                    `yaml:"default,omitempty"`
	Inputs  map[string]map[string]any `yaml:"inputs,omitempty"`
}

// ProjectConfig models .procflow/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Runs      RunsConfig      `yaml:"runs"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	History   HistoryConfig   `yaml:"history"`
	Processes ProcessesConfig `yaml:"processes"`
}

// Config holds the runtime configuration for procflow.
type Config struct {
	// ProjectDir is the directory procflow was started from
	ProjectDir string

	// ProcflowProjectDir is ProjectDir/.procflow
	ProcflowProjectDir string

	Project ProjectConfig
}

// InitDir creates the .procflow directory structure in the given project
// directory.
//
// Structure created:
// .procflow/
// ├── config.yaml
// ├── logs/     <- procflow.log
// ├── runs/     <- one directory per run (state.json, logbook.log, result.md, tasks/)
// └── suites/   <- suite definitions
func InitDir(projectDir string) error {
	root := filepath.Join(projectDir, ProcflowDir)
	dirs := []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "runs"),
		filepath.Join(root, "suites"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig creates a new Config populated with project settings and
// environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:         projectDir,
		ProcflowProjectDir: filepath.Join(projectDir, ProcflowDir),
		Project:            defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.ProcflowProjectDir, "logs")
}

// RunsDir returns the directory holding run directories.
func (c *Config) RunsDir() string {
	return resolvePath(c.ProcflowProjectDir, c.Project.Runs.Dir)
}

// SuitesDir returns the directory holding suite definitions.
func (c *Config) SuitesDir() string {
	return filepath.Join(c.ProcflowProjectDir, "suites")
}

// HistoryPath returns the SQLite history database path.
func (c *Config) HistoryPath() string {
	return resolvePath(c.ProcflowProjectDir, c.Project.History.Path)
}

// HistoryEnabled reports whether runs are recorded in the history database.
func (c *Config) HistoryEnabled() bool {
	return boolOr(c.Project.History.Enabled, true)
}

// ValidateResults reports whether task results are checked against their
// output schema.
func (c *Config) ValidateResults() bool {
	return boolOr(c.Project.Runs.ValidateResults, true)
}

// BridgeEnabled reports whether the gate bridge may be started.
func (c *Config) BridgeEnabled() bool {
	return boolOr(c.Project.Bridge.Enabled, true)
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ProcflowProjectDir, "config.yaml")
}

// ProcessInputs returns the configured input preset for a process, or nil.
func (c *Config) ProcessInputs(processID string) map[string]any {
	preset := c.Project.Processes.Inputs[processID]
	if len(preset) == 0 {
		return nil
	}
	out := make(map[string]any, len(preset))
	for k, v := range preset {
		out[k] = v
	}
	return out
}

// DefaultProcess returns the configured default process identifier.
func (c *Config) DefaultProcess() string {
	return c.Project.Processes.Default
}

// SetDefaultProcess updates the default process and persists the value back
// to .procflow/config.yaml.
func (c *Config) SetDefaultProcess(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("config: process id is required")
	}
	c.Project.Processes.Default = id
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) applyEnvOverrides() {
	if kind := strings.TrimSpace(os.Getenv("PROCFLOW_EXECUTOR")); kind != "" {
		c.Project.Executor.Kind = normalizeKind(kind)
	}
	if endpoint := strings.TrimSpace(os.Getenv("PROCFLOW_EXECUTOR_ENDPOINT")); endpoint != "" {
		c.Project.Executor.Endpoint = endpoint
	}
	if dir := strings.TrimSpace(os.Getenv("PROCFLOW_RUNS_DIR")); dir != "" {
		c.Project.Runs.Dir = dir
	}
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{Version: 1}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Executor.Kind == "" {
		pc.Executor.Kind = ExecutorReplay
	}
	if pc.Executor.Timeout == 0 {
		pc.Executor.Timeout = defaultExecutorTimeout
	}
	if pc.Runs.Dir == "" {
		pc.Runs.Dir = "runs"
	}
	if pc.Bridge.Host == "" {
		pc.Bridge.Host = defaultBridgeHost
	}
	if pc.Bridge.Port == 0 {
		pc.Bridge.Port = defaultBridgePort
	}
	if pc.History.Path == "" {
		pc.History.Path = "history.db"
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Executor.Kind = normalizeKind(pc.Executor.Kind)
	pc.Executor.Endpoint = strings.TrimSpace(pc.Executor.Endpoint)
	if pc.Executor.MaxParallel < 0 {
		pc.Executor.MaxParallel = 0
	}
	pc.Bridge.Host = strings.TrimSpace(pc.Bridge.Host)
	pc.Processes.Default = strings.TrimSpace(pc.Processes.Default)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	switch pc.Executor.Kind {
	case ExecutorReplay:
	case ExecutorHTTP:
		if pc.Executor.Endpoint == "" {
			return fmt.Errorf("executor.endpoint is required for the http executor")
		}
	default:
		return fmt.Errorf("executor.kind must be 'replay' or 'http'")
	}
	if pc.Executor.Timeout < 0 {
		return fmt.Errorf("executor.timeout must be >= 0")
	}
	if pc.Bridge.Port < 0 || pc.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port must be between 0 and 65535")
	}
	return nil
}

func normalizeKind(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return base
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.ProcflowProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure procflow dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
