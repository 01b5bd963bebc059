// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the patchbay command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/patchbay/cmd/patchbay/cli"
	"github.com/bureau-foundation/patchbay/lib/version"
)

// Root returns the complete command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "patchbay",
		Description: `Patchbay: plugin registry and privileged installs.

Manage the plugins the patch engine loads, and install files through a
short-lived privileged worker launched by patchbay-broker.`,
		Subcommands: []*cli.Command{
			pluginCommand(),
			installCommand(),
			statusCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(context.Context, []string, *slog.Logger) error {
					fmt.Fprintf(cli.Stdout, "patchbay %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
