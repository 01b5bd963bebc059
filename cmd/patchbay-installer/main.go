// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/patchbay/lib/config"
	"github.com/bureau-foundation/patchbay/lib/process"
	"github.com/bureau-foundation/patchbay/lib/version"
	"github.com/bureau-foundation/patchbay/lib/worker"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		socketPath  string
		configPath  string
		targetDir   string
		debug       bool
		showVersion bool
	)
	flags := pflag.NewFlagSet("patchbay-installer", pflag.ExitOnError)
	flags.StringVar(&socketPath, "socket", "", "socket to serve on (required; set by the broker)")
	flags.StringVar(&configPath, "config", "", "path to patchbay.yaml")
	flags.StringVar(&targetDir, "target-dir", "", "install destination (default: installer.target_dir from the config)")
	flags.BoolVar(&debug, "debug", false, "log at debug level")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.Parse(os.Args[1:])

	if showVersion {
		fmt.Printf("patchbay-installer %s\n", version.Info())
		return nil
	}
	if socketPath == "" {
		return fmt.Errorf("--socket is required\n\n" +
			"This binary is launched by patchbay-broker. It is not intended for direct use.")
	}

	if targetDir == "" {
		cfg, err := config.Resolve(configPath)
		if err != nil {
			return err
		}
		targetDir = cfg.Installer.TargetDir
	}
	if targetDir == "" {
		return fmt.Errorf("no install target: set installer.target_dir or pass --target-dir")
	}

	logger := process.NewLogger(os.Stderr, debug).With("pid", os.Getpid())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("installer starting", "version", version.Info(), "socket", socketPath, "target", targetDir)
	installer := &worker.StagedInstaller{TargetDir: targetDir, Logger: logger}
	if err := worker.Serve(ctx, socketPath, installer, logger); err != nil {
		return fmt.Errorf("installer: %w", err)
	}
	logger.Info("installer stopped")
	return nil
}
