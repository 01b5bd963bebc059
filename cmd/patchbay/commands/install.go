// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/patchbay/cmd/patchbay/cli"
	"github.com/bureau-foundation/patchbay/lib/availability"
	"github.com/bureau-foundation/patchbay/lib/bridge"
	"github.com/bureau-foundation/patchbay/lib/broker"
	"github.com/bureau-foundation/patchbay/lib/task"
	"github.com/bureau-foundation/patchbay/lib/tui"
)

type installParams struct {
	cli.ConfigFile
	cli.JSONOutput
	Timeout time.Duration `flag:"timeout" desc:"bind timeout (default: broker.bind_timeout from the config)"`
}

// installResult is the --json form of an install.
type installResult struct {
	Succeeded bool     `json:"succeeded"`
	Kind      string   `json:"kind,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Log       []string `json:"log"`
}

func installCommand() *cli.Command {
	var params installParams
	return &cli.Command{
		Name:    "install",
		Summary: "Install files through the privileged installer",
		Description: `Ask patchbay-broker for an installer worker, hand it the files, and
report the outcome. The worker is launched for this install and stopped
when it finishes. Relative paths are resolved against the current
directory. Exits 1 if the install did not succeed.`,
		Usage: "patchbay install <file>... [flags]",
		Examples: []cli.Example{
			{Description: "Install a patched base package and its split", Command: "patchbay install out/base.apk out/split_config.apk"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("install", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) == 0 {
				return cli.Validation("usage: patchbay install <file>...")
			}
			cfg, err := params.Load()
			if err != nil {
				return err
			}
			bindTimeout := params.Timeout
			if bindTimeout <= 0 {
				bindTimeout, _ = cfg.BindTimeout()
			}

			available, stopWatching := watchAvailability(ctx, cfg.Broker.SocketPath, availability.Default, logger)
			defer stopWatching()
			if !available {
				logger.Warn("broker socket is not accepting connections; trying anyway", "socket", cfg.Broker.SocketPath)
			}

			installer := bridge.New(bridge.Config{
				Broker:            broker.NewClient(cfg.Broker.SocketPath, logger),
				Component:         cfg.Installer.Component,
				ProcessNameSuffix: cfg.Installer.ProcessNameSuffix,
				BindTimeout:       bindTimeout,
				Logger:            logger,
			})

			recorder := task.NewRecorder(logger)
			stopProgress := showProgress(recorder, params.OutputJSON)
			installErr := installer.Install(ctx, args, recorder)
			stopProgress()

			if installErr != nil && !availability.Available() {
				logger.Info("broker socket unavailable after install attempt", "socket", cfg.Broker.SocketPath)
			}
			return reportInstall(&params.JSONOutput, recorder, installErr, cfg.Broker.SocketPath)
		},
	}
}

// showProgress prints phase changes to stderr until the returned stop
// function is called.
func showProgress(recorder *task.Recorder, quiet bool) func() {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		last := ""
		for {
			select {
			case <-done:
				return
			case <-recorder.Changed():
				label := recorder.Task()
				if label != last && !quiet {
					fmt.Fprintf(os.Stderr, "%s...\n", label)
				}
				last = label
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func reportInstall(output *cli.JSONOutput, recorder *task.Recorder, installErr error, socketPath string) error {
	lines := recorder.Lines()
	result := installResult{Succeeded: bridge.Succeeded(installErr), Log: lines}
	var failure *bridge.InstallError
	if errors.As(installErr, &failure) {
		result.Kind = failure.Kind.Error()
		result.Reason = failure.Reason
	}

	if done, err := output.EmitJSON(result); done {
		if err != nil {
			return err
		}
		if !result.Succeeded {
			return &cli.ExitError{Code: 1}
		}
		return nil
	}

	for _, line := range lines {
		fmt.Fprintln(cli.Stdout, tui.DefaultTheme.Outcome(line, result.Succeeded))
	}
	switch {
	case result.Succeeded:
		return nil
	case errors.Is(installErr, bridge.ErrCancelled):
		fmt.Fprintln(os.Stderr, "Installation cancelled")
	case errors.Is(installErr, broker.ErrUnreachable):
		if diagnosis := cli.DiagnoseSocketError(installErr, socketPath); diagnosis != nil {
			return diagnosis
		}
	}
	return &cli.ExitError{Code: 1}
}

// watchAvailability starts a monitor on socketPath, subscribes tracker
// to it, and returns the first state the monitor reports. The monitor
// keeps running, and tracker keeps following it, until stop is called
// or ctx ends. A tracker already bound to an earlier monitor stays on
// that one.
func watchAvailability(ctx context.Context, socketPath string, tracker *availability.Tracker, logger *slog.Logger) (available bool, stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	monitor := availability.NewSocketMonitor(socketPath, nil, logger)
	var state atomic.Bool
	settled := make(chan struct{}, 1)
	signal := func(available bool) func() {
		return func() {
			state.Store(available)
			select {
			case settled <- struct{}{}:
			default:
			}
		}
	}
	monitor.AddReceivedListenerSticky(signal(true))
	monitor.AddDeadListener(signal(false))
	tracker.Init(monitor)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		err := monitor.Run(ctx)
		logger.Debug("availability monitor stopped", "error", err)
	}()
	stop = func() {
		cancel()
		<-runDone
	}

	select {
	case <-settled:
	case <-runDone:
		return false, stop
	case <-time.After(2 * time.Second):
	}
	return state.Load(), stop
}
