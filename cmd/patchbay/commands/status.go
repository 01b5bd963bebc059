// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/patchbay/cmd/patchbay/cli"
	"github.com/bureau-foundation/patchbay/lib/availability"
	"github.com/bureau-foundation/patchbay/lib/broker"
	"github.com/bureau-foundation/patchbay/lib/ipc"
	"github.com/bureau-foundation/patchbay/lib/tui"
)

type statusParams struct {
	cli.ConfigFile
	cli.JSONOutput
}

type statusReport struct {
	SocketPath    string            `json:"socket_path"`
	Available     bool              `json:"available"`
	BrokerVersion string            `json:"broker_version,omitempty"`
	Components    map[string]string `json:"components,omitempty"`
	Workers       []workerReport    `json:"workers"`
	Error         string            `json:"error,omitempty"`
}

type workerReport struct {
	Key        string `json:"key"`
	PID        int    `json:"pid"`
	Version    int    `json:"version"`
	Debug      bool   `json:"debug"`
	Daemon     bool   `json:"daemon"`
	Bindings   int    `json:"bindings"`
	SocketPath string `json:"socket_path"`
}

func statusCommand() *cli.Command {
	var params statusParams
	return &cli.Command{
		Name:    "status",
		Summary: "Show whether the privileged broker is reachable",
		Description: `Report whether the broker socket accepts connections and, if it does,
the broker's version, worker binary digests, and running workers.
Exits 1 when the broker is unavailable.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("status", &params) },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("usage: patchbay status [flags]")
			}
			cfg, err := params.Load()
			if err != nil {
				return err
			}

			available, stopWatching := watchAvailability(ctx, cfg.Broker.SocketPath, &availability.Tracker{}, logger)
			stopWatching()
			report := statusReport{
				SocketPath: cfg.Broker.SocketPath,
				Available:  available,
			}
			if report.Available {
				status, err := broker.NewClient(cfg.Broker.SocketPath, logger).Status(ctx)
				if err != nil {
					report.Error = err.Error()
				} else {
					fillStatus(&report, status)
				}
			}

			if done, err := params.EmitJSON(report); done {
				if err == nil && !report.Available {
					return &cli.ExitError{Code: 1}
				}
				return err
			}
			printStatus(report)
			if !report.Available {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func fillStatus(report *statusReport, status *ipc.StatusResponse) {
	report.BrokerVersion = status.Version
	report.Components = status.Components
	for _, entry := range status.Workers {
		report.Workers = append(report.Workers, workerReport{
			Key:        entry.Key,
			PID:        entry.PID,
			Version:    entry.Version,
			Debug:      entry.Debug,
			Daemon:     entry.Daemon,
			Bindings:   entry.Bindings,
			SocketPath: entry.SocketPath,
		})
	}
}

func printStatus(report statusReport) {
	theme := tui.DefaultTheme
	fmt.Fprintf(cli.Stdout, "Broker %s at %s\n", theme.Availability(report.Available), report.SocketPath)
	if report.Error != "" {
		fmt.Fprintf(cli.Stdout, "  status call failed: %s\n", report.Error)
	}
	if report.BrokerVersion != "" {
		fmt.Fprintf(cli.Stdout, "  version %s\n", report.BrokerVersion)
	}

	components := make([]string, 0, len(report.Components))
	for component := range report.Components {
		components = append(components, component)
	}
	slices.Sort(components)
	for _, component := range components {
		digest := report.Components[component]
		if digest == "" {
			digest = "unreadable"
		}
		fmt.Fprintf(cli.Stdout, "  component %s %s\n", component, theme.Faint("blake3:"+digest))
	}

	for _, worker := range report.Workers {
		kind := "bound"
		if worker.Daemon {
			kind = "daemon"
		}
		fmt.Fprintf(cli.Stdout, "  worker %s pid %d v%d %s, %d binding(s)\n",
			worker.Key, worker.PID, worker.Version, kind, worker.Bindings)
	}
}
