package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tbragan/graphion/pkg/engine"
	"github.com/tbragan/graphion/pkg/eventbus"
	"github.com/tbragan/graphion/pkg/events"
	"github.com/tbragan/graphion/pkg/expression"
	"github.com/tbragan/graphion/pkg/log"
	"github.com/tbragan/graphion/pkg/models"
	"github.com/tbragan/graphion/pkg/otelhelper"
	"github.com/tbragan/graphion/pkg/reference"
	"github.com/tbragan/graphion/pkg/registry"
	"github.com/tbragan/graphion/pkg/workflow"
)

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Execute a workflow document against an event payload",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow",
				Aliases:  []string{"w"},
				Usage:    "Path to the workflow JSON document",
				Required: true,
				Sources:  cli.EnvVars("GRAPHION_WORKFLOW"),
			},
			&cli.StringFlag{
				Name:    "event",
				Aliases: []string{"e"},
				Usage:   "Path to the seed event JSON payload",
				Sources: cli.EnvVars("GRAPHION_EVENT"),
			},
			&cli.BoolFlag{
				Name:  "debug-inputs",
				Usage: "Retain resolved-input snapshots on log entries",
			},
			&cli.BoolFlag{
				Name:  "continue-on-error",
				Usage: "Keep traversing after a node error instead of halting",
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces via OTLP HTTP",
				Sources: cli.EnvVars("GRAPHION_TRACING"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output format (text, json)",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("graphion")

	wf, err := loadWorkflow(command.String("workflow"))
	if err != nil {
		return err
	}

	event, err := loadEvent(command.String("event"))
	if err != nil {
		return err
	}

	resolver := reference.NewResolver(expression.NewExprEvaluator())
	reg := registry.NewDefaultRegistry(logger, resolver)

	bus := eventbus.NewGoChannelEventBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error("failed to close event bus", "error", err)
		}
	}()

	bus.Handle(events.NodeFinishedEvent, func(_ context.Context, event any) error {
		finished, ok := event.(*events.NodeFinished)
		if !ok {
			return nil
		}

		logger.Info("node finished",
			"node_id", finished.NodeID,
			"status", finished.Status,
			"duration_ms", finished.DurationMs)

		return nil
	})

	if err := bus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	eng := engine.NewEngine(reg, resolver).WithEventBus(bus)

	if command.Bool("tracing") {
		tracer, err := otelhelper.NewTracer(ctx, "graphion")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		eng = eng.WithTracer(tracer)
	}

	options := models.RunOptions{
		StopOnError:          !command.Bool("continue-on-error"),
		RetainInputSnapshots: command.Bool("debug-inputs"),
	}

	result, err := eng.Run(ctx, wf, event, options)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if err := printResult(command.String("output"), result); err != nil {
		return err
	}

	if result.Failed() {
		return fmt.Errorf("run halted with %d node error(s)", len(result.Context.Errors))
	}

	return nil
}

func loadWorkflow(path string) (*models.Workflow, error) {
	document, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow document: %w", err)
	}

	wf, err := workflow.Parse(document)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow document: %w", err)
	}

	return wf, nil
}

func loadEvent(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event payload: %w", err)
	}

	var event map[string]any
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse event payload: %w", err)
	}

	return event, nil
}

func printResult(format string, result *engine.RunResult) error {
	if format == "json" {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}

		fmt.Println(string(encoded))

		return nil
	}

	fmt.Printf("Workflow: %s (execution %s)\n", result.Context.WorkflowName, result.Context.ID)
	fmt.Printf("Start node: %s\n", result.StartNodeID)
	fmt.Println("Visited:")

	for _, entry := range result.Context.Logs {
		marker := "✅"
		if entry.Status == models.NodeStatusError {
			marker = "❌"
		} else if entry.Status == models.NodeStatusSkipped {
			marker = "⏭️"
		}

		fmt.Printf("  %s %s [%s] %s\n", marker, entry.NodeID, entry.Status, entry.Duration)

		if entry.ErrorSummary != "" {
			fmt.Printf("     error: %s\n", entry.ErrorSummary)
		}
	}

	return nil
}
