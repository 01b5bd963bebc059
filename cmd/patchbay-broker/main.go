// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/patchbay/lib/broker"
	"github.com/bureau-foundation/patchbay/lib/clock"
	"github.com/bureau-foundation/patchbay/lib/config"
	"github.com/bureau-foundation/patchbay/lib/process"
	"github.com/bureau-foundation/patchbay/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		socketMode  string
		debug       bool
		showVersion bool
	)
	flags := pflag.NewFlagSet("patchbay-broker", pflag.ExitOnError)
	flags.StringVar(&configPath, "config", "", "path to patchbay.yaml (default: $"+config.EnvironmentVariable+", else built-in defaults)")
	flags.StringVar(&socketMode, "socket-mode", "0660", "octal permission mode for the broker socket")
	flags.BoolVar(&debug, "debug", false, "log at debug level")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.Parse(os.Args[1:])

	if showVersion {
		fmt.Printf("patchbay-broker %s\n", version.Info())
		return nil
	}

	mode, err := strconv.ParseUint(socketMode, 8, 32)
	if err != nil {
		return fmt.Errorf("invalid --socket-mode %q: %w", socketMode, err)
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := process.NewLogger(os.Stderr, debug)

	workers, err := workerTable(cfg)
	if err != nil {
		return err
	}

	// Workers load the same configuration so they agree on target
	// directories.
	var workerArgs []string
	if configPath != "" {
		workerArgs = []string{"--config", configPath}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("broker starting",
		"version", version.Info(),
		"socket", cfg.Broker.SocketPath,
		"run_dir", cfg.Paths.Run,
		"components", len(workers),
	)

	server := broker.NewServer(broker.Config{
		SocketPath:  cfg.Broker.SocketPath,
		SocketMode:  os.FileMode(mode),
		RunDir:      cfg.Paths.Run,
		Workers:     workers,
		WorkerArgs:  workerArgs,
		Version:     version.Info(),
		VersionCode: version.Code(),
		Clock:       clock.Real(),
		Logger:      logger,
	})
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("broker: %w", err)
	}
	logger.Info("broker stopped")
	return nil
}

// workerTable resolves a binary for every configured component and
// for the installer component.
func workerTable(cfg *config.Config) (map[string]string, error) {
	components := []string{cfg.Installer.Component}
	for component := range cfg.Broker.Workers {
		if !slices.Contains(components, component) {
			components = append(components, component)
		}
	}

	workers := make(map[string]string, len(components))
	for _, component := range components {
		binary, err := cfg.WorkerBinary(component)
		if err != nil {
			return nil, err
		}
		workers[component] = binary
	}
	return workers, nil
}
