package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/procflow/internal/config"
	"github.com/kingrea/procflow/internal/process"
	"github.com/kingrea/procflow/internal/schema"
)

func newInitCommand(c *cli) *cobra.Command {
	var defaultProcess string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .procflow with a commented config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if id := strings.TrimSpace(defaultProcess); id != "" {
				proc, err := s.registry.Lookup(id)
				if err != nil {
					return err
				}
				if err := s.cfg.SetDefaultProcess(proc.Info().ID); err != nil {
					return err
				}
			}
			s.logger.Printf("init: project %s", s.cfg.ProjectDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", s.cfg.ProcflowProjectDir)
			if id := s.cfg.DefaultProcess(); id != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Default process: %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&defaultProcess, "default", "", "process run when `procflow run` gets no argument")
	return cmd
}

func newListCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List built-in processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			rows := [][]string{}
			for _, info := range s.registry.Infos() {
				id := info.ID
				if info.ID == s.cfg.DefaultProcess() {
					id += " *"
				}
				rows = append(rows, []string{id, strings.Join(info.Aliases, ", "), info.Category, info.Name})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "ALIASES", "CATEGORY", "NAME"}, rows))
			return nil
		},
	}
}

type optionDoc struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Default     any      `json:"default,omitempty"`
	Derived     bool     `json:"derived,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

type taskDoc struct {
	Name   string        `json:"name"`
	Labels []string      `json:"labels,omitempty"`
	Output *schema.Field `json:"output"`
}

type processDoc struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Version     string      `json:"version"`
	Category    string      `json:"category,omitempty"`
	Aliases     []string    `json:"aliases,omitempty"`
	Options     []optionDoc `json:"options"`
	Tasks       []taskDoc   `json:"tasks"`
	Preset      any         `json:"configured_inputs,omitempty"`
}

func describeProcess(proc process.Process, cfg *config.Config) processDoc {
	info := proc.Info()
	doc := processDoc{
		ID:          info.ID,
		Name:        info.Name,
		Description: info.Description,
		Version:     info.Version,
		Category:    info.Category,
		Aliases:     info.Aliases,
	}
	for _, opt := range proc.Options() {
		doc.Options = append(doc.Options, optionDoc{
			Name:        opt.Name,
			Description: opt.Description,
			Default:     opt.Default,
			Derived:     opt.DefaultFunc != nil,
			Required:    opt.Required,
			Enum:        opt.Enum,
		})
	}
	for _, def := range proc.Tasks() {
		doc.Tasks = append(doc.Tasks, taskDoc{Name: def.Name(), Labels: def.Labels(), Output: def.Schema()})
	}
	if preset := cfg.ProcessInputs(info.ID); preset != nil {
		doc.Preset = preset
	}
	return doc
}

func newDescribeCommand(c *cli) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "describe [process]",
		Short: "Show a process's options and task output schemas",
		Args:  cobra.MaximumNArgs(1),
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
			doc := describeProcess(proc, s.cfg)
			switch strings.ToLower(strings.TrimSpace(output)) {
			case "json":
				return writeJSON(cmd.OutOrStdout(), doc)
			case "yaml", "":
				// Round-trip through JSON so schemas keep their JSON Schema keys.
				data, err := json.Marshal(doc)
				if err != nil {
					return err
				}
				var generic any
				if err := json.Unmarshal(data, &generic); err != nil {
					return err
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(generic)
			default:
				return fmt.Errorf("unsupported output %q (expected yaml or json)", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml or json")
	return cmd
}
