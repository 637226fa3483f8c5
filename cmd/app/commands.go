package main

import (
	"slices"

	"github.com/urfave/cli/v3"
)

// getCommands lists the server and maintenance commands, then key tooling, then
// the per-user compliance commands.
func getCommands(version string) []*cli.Command {
	return slices.Concat(
		getSystemCommands(version),
		getKeyCommands(),
		getComplianceCommands(),
	)
}
