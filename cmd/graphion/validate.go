package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/tbragan/graphion/pkg/log"
	"github.com/tbragan/graphion/pkg/workflow"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a workflow document without executing it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow",
				Aliases:  []string{"w"},
				Usage:    "Path to the workflow JSON document",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			path := command.String("workflow")

			document, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read workflow document: %w", err)
			}

			wf, err := workflow.Parse(document)
			if err != nil {
				fmt.Printf("❌ INVALID: %v\n", err)

				return err
			}

			fmt.Printf("✅ VALID: %s (%d nodes)\n", wf.Name, len(wf.Nodes))

			for _, node := range wf.Nodes {
				fmt.Printf("  %s (%s), %d edge(s)\n", node.ID, node.Type, len(node.Edges))
			}

			return nil
		},
	}
}
