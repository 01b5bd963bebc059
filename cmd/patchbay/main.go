// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/patchbay/cmd/patchbay/cli"
	"github.com/bureau-foundation/patchbay/cmd/patchbay/commands"
	"github.com/bureau-foundation/patchbay/lib/process"
)

func main() {
	if err := run(); err != nil {
		var toolErr *cli.ToolError
		if errors.As(err, &toolErr) && toolErr.Hint != "" {
			fmt.Fprintf(os.Stderr, "error: %v\n\n%s\n", err, toolErr.Hint)
			os.Exit(1)
		}
		process.Exit(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := slog.LevelWarn
	if os.Getenv("PATCHBAY_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return commands.Root().Execute(ctx, os.Args[1:], cli.NewCommandLogger(level))
}
