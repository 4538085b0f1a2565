package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/botirk38/agentcache/agent"
	"github.com/botirk38/agentcache/config"
	"github.com/botirk38/agentcache/metrics"
	"github.com/botirk38/agentcache/semanticcache"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:           "agentcache",
		Short:         "semantic cache in front of text-generation providers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level from the config")

	loadConfig := func() (*config.Config, error) {
		cfg := config.Default()
		if configPath != "" {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return nil, err
			}
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return cfg, config.Validate(cfg)
	}

	rootCmd.AddCommand(newAskCmd(loadConfig), newAgentsCmd(), newModelsCmd(loadConfig))
	return rootCmd
}

func newAskCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var (
		agentName   string
		dumpMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "ask [query]...",
		Short: "answer each query in order through one cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.New(nil)
			app, err := build(ctx, cfg, logger, m)
			if err != nil {
				return err
			}
			defer app.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, query := range args {
				res, err := app.orchestrator.Answer(ctx, agentName, query)
				if err != nil {
					return err
				}
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
			if err := enc.Encode(struct {
				Stats semanticcache.Stats `json:"stats"`
			}{app.orchestrator.Stats()}); err != nil {
				return err
			}

			if dumpMetrics {
				return writeMetrics(cmd, m)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&agentName, "agent", agent.Retrieval, "agent to answer through")
	cmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "print Prometheus metrics after answering")
	return cmd
}

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "list the available agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := agent.NewDefaultRegistry()
			descriptions := registry.Descriptions()
			for _, name := range registry.Names() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-15s %s\n", name, descriptions[name])
			}
			return nil
		},
	}
}

func newModelsCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "list models served by the OpenAI-compatible providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			return listModels(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
		},
	}
}

func writeMetrics(cmd *cobra.Command, m *metrics.Metrics) error {
	families, err := m.GetRegistry().Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(cmd.OutOrStdout(), expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
