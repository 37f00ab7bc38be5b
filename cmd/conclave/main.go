// Package main provides the conclave CLI: a thin driver that loads a YAML
// agent roster, builds the configured topology, and runs one input through
// it.
//
// # Basic Usage
//
// Validate a roster without running anything:
//
//	conclave validate --config roster.yaml
//
// Run one input through the configured topology:
//
//	conclave run --config roster.yaml --input "summarize the quarter"
//
// # Environment Variables
//
//   - CONCLAVE_CONFIG: path to the roster file (default: conclave.yaml)
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY: provider credentials referenced
//     from the roster via ${VAR} expansion
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/conclave/internal/agent"
	"github.com/haasonsaas/conclave/internal/config"
	"github.com/haasonsaas/conclave/internal/observability"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "conclave",
		Short: "Run YAML-configured multi-agent topologies",
		Long:  "conclave loads a roster of agents, providers, and a topology from YAML and drives one run through it.",
	}
	root.PersistentFlags().StringVar(&configPath, "config", envOr("CONCLAVE_CONFIG", "conclave.yaml"), "path to the roster YAML file")

	root.AddCommand(buildValidateCmd(&configPath))
	root.AddCommand(buildRunCmd(&configPath))
	root.AddCommand(buildVersionCmd())
	return root
}

func buildValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate the roster without building or running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d provider(s), %d agent(s), topology=%s\n",
				len(cfg.Providers), len(cfg.Agents), topologyKind(cfg.Topology.Kind))
			return nil
		},
	}
}

func buildRunCmd(configPath *string) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the configured topology and run one input through it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			logger := observability.NewLogger(observability.LogConfig{
				Level:  cfg.Observability.LogLevel,
				Format: cfg.Observability.LogFormat,
			})

			ctx := context.Background()

			bus := agent.NewEventBusProcessor()
			processors := []agent.TelemetryProcessor{
				agent.NewLoggingTelemetryProcessor(nil),
				agent.NewMetricsTelemetryProcessor(nil),
				bus,
			}
			if cfg.Observability.TracingEnabled {
				tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
					ServiceName:    cfg.Observability.ServiceName,
					ServiceVersion: cfg.Observability.ServiceVersion,
					Environment:    cfg.Observability.Environment,
					Endpoint:       cfg.Observability.OTLPEndpoint,
					SamplingRate:   cfg.Observability.TracingSampleRate,
				})
				defer func() { _ = shutdownTracer(context.Background()) }()
				processors = append(processors, agent.NewTracingTelemetryProcessor(tracer))
			}
			loop := agent.NewTurnLoop(agent.RunOptions{
				Telemetry:    agent.MultiTelemetryProcessor{Processors: processors},
				Confirmation: config.BuildConfirmationPolicy(cfg),
			})
			built, err := config.Build(ctx, cfg, config.NewRegistry(), loop)
			if err != nil {
				return fmt.Errorf("building topology: %w", err)
			}

			logger.Info(ctx, "run starting", "topology", topologyKind(cfg.Topology.Kind), "agents", len(built.Agents))

			result, err := built.Run.Run(ctx, input)
			logger.Debug(ctx, "run emitted events",
				"agent_events", len(bus.AgentEvents()),
				"tool_events", len(bus.ToolEvents()))
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			switch result.Kind {
			case agent.ResultSuccess:
				fmt.Fprintln(cmd.OutOrStdout(), result.Output)
			case agent.ResultPaused:
				fmt.Fprintln(cmd.OutOrStdout(), "paused: awaiting confirmation for a pending tool call")
			case agent.ResultHandoff:
				fmt.Fprintf(cmd.OutOrStdout(), "handed off to %s\n", result.HandoffTo)
			default:
				return fmt.Errorf("run ended in state %s: %w", result.Kind, result.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "input text to run through the topology")
	cmd.MarkFlagRequired("input")
	return cmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "conclave %s (commit %s, built %s)\n", version, commit, date)
			return nil
		},
	}
}

func topologyKind(kind string) string {
	if kind == "" {
		return "single"
	}
	return kind
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
