package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/heirclark/dataguard/cmd/app/commands"
	"github.com/heirclark/dataguard/internal/app"
	"github.com/heirclark/dataguard/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new master key for field encryption",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				return commands.RunCreateMasterKey(container.Logger(), commands.DefaultIO().Writer)
			},
		},
		{
			Name:  "hash-api-token",
			Usage: "Hash an operator API token, generating one when none is given",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "token",
					Aliases: []string{"t"},
					Value:   "",
					Usage:   "Token to hash (omit to generate a random token)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				return commands.RunHashAPIToken(
					container.APITokenService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("token"),
				)
			},
		},
		{
			Name:  "backfill-encryption",
			Usage: "Encrypt legacy plaintext values of an encrypted column",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "table",
					Required: true,
					Usage:    "Table holding the encrypted column (e.g., weight_logs)",
				},
				&cli.StringFlag{
					Name:     "column",
					Required: true,
					Usage:    "Encrypted column to fill (e.g., weight_encrypted)",
				},
				&cli.IntFlag{
					Name:    "batch-size",
					Aliases: []string{"b"},
					Value:   500,
					Usage:   "Number of rows to read per batch",
				},
				&cli.BoolFlag{
					Name:  "clear-plaintext",
					Value: false,
					Usage: "Set the legacy plaintext column to NULL once the envelope is stored",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Count pending rows without writing",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				backfillUseCase, err := container.BackfillUseCase()
				if err != nil {
					return err
				}

				return commands.RunBackfillEncryption(
					ctx,
					backfillUseCase,
					container.Registry(),
					container.Logger(),
					commands.DefaultIO().Writer,
					commands.BackfillOptions{
						Table:          cmd.String("table"),
						Column:         cmd.String("column"),
						BatchSize:      int(cmd.Int("batch-size")),
						ClearPlaintext: cmd.Bool("clear-plaintext"),
						DryRun:         cmd.Bool("dry-run"),
						Format:         cmd.String("format"),
					},
				)
			},
		},
	}
}
