package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/heirclark/dataguard/cmd/app/commands"
	"github.com/heirclark/dataguard/internal/app"
	"github.com/heirclark/dataguard/internal/config"
)

func getComplianceCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "export-user",
			Usage: "Export every stored record of a user as JSON",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user-id",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "User ID",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				complianceUseCase, err := container.ComplianceUseCase()
				if err != nil {
					return err
				}

				return commands.RunExportUser(
					ctx,
					complianceUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("user-id"),
				)
			},
		},
		{
			Name:  "erase-user",
			Usage: "Permanently delete a user's data and anonymize their audit logs",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user-id",
					Aliases:  []string{"u"},
					Required: true,
					Usage:    "User ID",
				},
				&cli.StringFlag{
					Name:     "confirm",
					Required: true,
					Usage:    "Repeat the user ID to confirm the erasure",
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

				complianceUseCase, err := container.ComplianceUseCase()
				if err != nil {
					return err
				}

				return commands.RunEraseUser(
					ctx,
					complianceUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("user-id"),
					cmd.String("confirm"),
					cmd.String("format"),
				)
			},
		},
	}
}
