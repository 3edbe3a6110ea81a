package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/funcmodel/funcmodel/pkg/log"
)

func main() {
	cmd := &cli.Command{
		Name:                  "funcmodel",
		Usage:                 "Create, validate, and simulate function models",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a funcmodel.yaml configuration file",
				Sources: cli.EnvVars("FUNCMODEL_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Root directory for model snapshot storage",
				Value:   "./data",
				Sources: cli.EnvVars("FUNCMODEL_DATA_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Operate on stored function models",
				Commands: []*cli.Command{
					{
						Name:      "create",
						Usage:     "Create a new draft model",
						ArgsUsage: "<name>",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "owner",
								Usage: "Owner of the new model",
								Value: "local",
							},
							&cli.StringFlag{
								Name:  "description",
								Usage: "Model description",
							},
						},
						Action: func(ctx context.Context, command *cli.Command) error {
							return createModel(ctx, command)
						},
					},
					{
						Name:      "publish",
						Usage:     "Publish a stored draft model",
						ArgsUsage: "<model-id>",
						Action: func(ctx context.Context, command *cli.Command) error {
							return publishModel(ctx, command)
						},
					},
					{
						Name:      "archive",
						Usage:     "Archive a stored model (terminal)",
						ArgsUsage: "<model-id>",
						Action: func(ctx context.Context, command *cli.Command) error {
							return archiveModel(ctx, command)
						},
					},
					{
						Name:      "validate",
						Usage:     "Validate a stored model's IO and action data schemas",
						ArgsUsage: "<model-id>",
						Action: func(ctx context.Context, command *cli.Command) error {
							return validateModel(ctx, command)
						},
					},
					{
						Name:      "inspect",
						Usage:     "Print a summary of a stored model",
						ArgsUsage: "<model-id>",
						Action: func(ctx context.Context, command *cli.Command) error {
							return inspectModel(ctx, command)
						},
					},
					{
						Name:      "plan",
						Usage:     "Compute the execution plan of a published model",
						ArgsUsage: "<model-id>",
						Action: func(ctx context.Context, command *cli.Command) error {
							return planModel(ctx, command)
						},
					},
					{
						Name:      "simulate",
						Usage:     "Dry-run a published model to completion and print the summary",
						ArgsUsage: "<model-id>",
						Action: func(ctx context.Context, command *cli.Command) error {
							return simulateModel(ctx, command)
						},
					},
					{
						Name:  "list",
						Usage: "List stored models",
						Action: func(ctx context.Context, command *cli.Command) error {
							return listModels(ctx, command)
						},
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Setup("error")
		log.WithModule("funcmodel").Error("command failed", "error", err)
		os.Exit(1)
	}
}
