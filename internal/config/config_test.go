package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	procflowDir := filepath.Join(projectDir, ".procflow")
	if err := os.MkdirAll(procflowDir, 0755); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, ProcflowProjectDir: procflowDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.Project.Executor.Kind != ExecutorReplay {
		t.Fatalf("expected replay executor, got %q", c.Project.Executor.Kind)
	}
	if c.RunsDir() != filepath.Join(procflowDir, "runs") {
		t.Fatalf("unexpected runs dir %s", c.RunsDir())
	}
	if !c.HistoryEnabled() || !c.ValidateResults() || !c.BridgeEnabled() {
		t.Fatalf("expected history, validation and bridge enabled by default")
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	procflowDir := filepath.Join(projectDir, ".procflow")
	if err := os.MkdirAll(procflowDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
executor:
  kind: HTTP
  endpoint: " http://agents.internal:9090 "
  timeout: 90s
  max_parallel: -2
runs:
  dir: /var/lib/procflow/runs
  validate_results: false
history:
  enabled: false
processes:
  default: sca
  inputs:
    sca-dependency-management:
      projectPath: ./services/api
      packageManagers: [npm, go]
`)
	if err := os.WriteFile(filepath.Join(procflowDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, ProcflowProjectDir: procflowDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Executor.Kind != ExecutorHTTP || c.Project.Executor.Endpoint != "http://agents.internal:9090" {
		t.Fatalf("executor not normalized: %+v", c.Project.Executor)
	}
	if c.Project.Executor.Timeout != 90*time.Second {
		t.Fatalf("expected 90s timeout, got %s", c.Project.Executor.Timeout)
	}
	if c.Project.Executor.MaxParallel != 0 {
		t.Fatalf("max_parallel should clamp to 0, got %d", c.Project.Executor.MaxParallel)
	}
	if c.RunsDir() != "/var/lib/procflow/runs" {
		t.Fatalf("absolute runs dir should be kept, got %s", c.RunsDir())
	}
	if c.ValidateResults() || c.HistoryEnabled() {
		t.Fatalf("expected validation and history disabled")
	}
	inputs := c.ProcessInputs("sca-dependency-management")
	if inputs["projectPath"] != "./services/api" {
		t.Fatalf("unexpected preset %v", inputs)
	}
	inputs["projectPath"] = "mutated"
	if c.ProcessInputs("sca-dependency-management")["projectPath"] != "./services/api" {
		t.Fatalf("ProcessInputs must return a copy")
	}
	if c.DefaultProcess() != "sca" {
		t.Fatalf("wrong default process: %s", c.DefaultProcess())
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	projectDir := t.TempDir()
	procflowDir := filepath.Join(projectDir, ".procflow")
	if err := os.MkdirAll(procflowDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
executor:
  kind: http
`)
	if err := os.WriteFile(filepath.Join(procflowDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, ProcflowProjectDir: procflowDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestInitDirWritesDefaultConfig(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("InitDir: %v", err)
	}
	for _, sub := range []string{"logs", "runs", "suites", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(projectDir, ".procflow", sub)); err != nil {
			t.Fatalf("expected %s: %v", sub, err)
		}
	}
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig on default config: %v", err)
	}
	if c.Project.Executor.Timeout != 10*time.Minute || c.Project.Executor.MaxParallel != 4 {
		t.Fatalf("unexpected executor defaults %+v", c.Project.Executor)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PROCFLOW_EXECUTOR", "http")
	t.Setenv("PROCFLOW_EXECUTOR_ENDPOINT", "http://127.0.0.1:9999")
	c, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if c.Project.Executor.Kind != ExecutorHTTP || c.Project.Executor.Endpoint != "http://127.0.0.1:9999" {
		t.Fatalf("env overrides not applied: %+v", c.Project.Executor)
	}
}

func TestSetDefaultProcessPersists(t *testing.T) {
	projectDir := t.TempDir()
	c, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if err := c.SetDefaultProcess("iso27001"); err != nil {
		t.Fatalf("SetDefaultProcess: %v", err)
	}
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.DefaultProcess() != "iso27001" {
		t.Fatalf("default process not persisted, got %q", reloaded.DefaultProcess())
	}
}
