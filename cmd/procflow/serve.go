package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kingrea/procflow/internal/gatebridge"
	"github.com/kingrea/procflow/internal/metrics"
	"github.com/kingrea/procflow/internal/tui"
)

func newServeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gate journal and metrics over HTTP",
		Long: `Serve the gate journal and metrics over HTTP.

Runs started with --bridge post their checkpoints and breakpoints here;
` + "`procflow watch`" + ` follows them. Host and port come from bridge.* in
config.yaml or PROCFLOW_BRIDGE_HOST / PROCFLOW_BRIDGE_PORT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			settings := gatebridge.SettingsFromConfig(s.cfg)
			if !settings.Enabled {
				return fmt.Errorf("gate bridge disabled (bridge.enabled=false or PROCFLOW_BRIDGE_ENABLED)")
			}
			srv := gatebridge.NewServer(settings,
				gatebridge.WithGatherer(prometheus.DefaultGatherer),
				gatebridge.WithForward(metrics.Default()),
				gatebridge.WithLogger(s.logger))
			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Gate bridge listening on %s (ctrl+c to stop)\n", srv.BaseURL())
			<-cmd.Context().Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	return cmd
}

func newWatchCommand(c *cli) *cobra.Command {
	var (
		url      string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow checkpoints and breakpoints from a running bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := url
			if target == "" {
				s, err := c.open(cmd)
				if err != nil {
					return err
				}
				target = gatebridge.SettingsFromConfig(s.cfg).URL()
				s.Close()
			}
			model := tui.NewWatch(gatebridge.NewClient(target, nil), target, interval)
			p := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()))
			_, err := p.Run()
			if err != nil && cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "bridge base URL (defaults to bridge.host/port from config)")
	cmd.Flags().DurationVar(&interval, "interval", tui.DefaultPollInterval, "poll interval")
	return cmd
}
