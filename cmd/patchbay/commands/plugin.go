// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/patchbay/cmd/patchbay/cli"
	"github.com/bureau-foundation/patchbay/lib/plugin"
	"github.com/bureau-foundation/patchbay/lib/tui"
)

// stdin is read by "plugin add -". Tests replace it.
var stdin = os.Stdin

func pluginCommand() *cli.Command {
	return &cli.Command{
		Name:    "plugin",
		Summary: "Manage patch engine plugins",
		Description: `Manage the plugins the patch engine loads.

Plugins are shared objects copied into the plugin directory and listed,
in order, in its plugins.json manifest. Only enabled plugins are loaded.`,
		Subcommands: []*cli.Command{
			pluginListCommand(),
			pluginAddCommand(),
			pluginRemoveCommand(),
			pluginToggleCommand("enable", true),
			pluginToggleCommand("disable", false),
			pluginLoaderNameCommand(),
			pluginEnabledCommand(),
		},
	}
}

func openRegistry(configFile *cli.ConfigFile, logger *slog.Logger) (*plugin.Registry, error) {
	cfg, err := configFile.Load()
	if err != nil {
		return nil, err
	}
	return plugin.NewRegistry(cfg.Paths.Plugins, logger), nil
}

// registryError categorizes a registry failure for the CLI.
func registryError(err error) error {
	if errors.Is(err, plugin.ErrInvalidFileName) {
		return cli.Validation("%w", err).
			WithHint("Run 'patchbay plugin list' to see registered file names.")
	}
	if errors.Is(err, plugin.ErrRegistryIO) {
		return &cli.ToolError{Category: cli.CategoryInternal, Err: err}
	}
	return err
}

// pluginInfo is one row of "plugin list".
type pluginInfo struct {
	Name       string `json:"name"`
	FileName   string `json:"fileName"`
	Enabled    bool   `json:"enabled"`
	LoaderName string `json:"loaderName"`
	Digest     string `json:"digest,omitempty"`
}

type pluginListParams struct {
	cli.ConfigFile
	cli.JSONOutput
	Verbose bool `flag:"verbose,v" desc:"include loader names and BLAKE3 digests"`
}

func pluginListCommand() *cli.Command {
	var params pluginListParams
	return &cli.Command{
		Name:    "list",
		Summary: "List registered plugins in load order",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("list", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("usage: patchbay plugin list [flags]")
			}
			registry, err := openRegistry(&params.ConfigFile, logger)
			if err != nil {
				return err
			}

			entries := registry.List()
			infos := make([]pluginInfo, 0, len(entries))
			for _, entry := range entries {
				info := pluginInfo{
					Name:       entry.Name,
					FileName:   entry.FileName,
					Enabled:    entry.Enabled,
					LoaderName: plugin.LoaderName(entry.FileName),
				}
				if params.Verbose {
					digest, err := registry.Digest(entry.FileName)
					if err != nil {
						logger.Warn("hashing plugin", "file", entry.FileName, "error", err)
						digest = "missing"
					}
					info.Digest = digest
				}
				infos = append(infos, info)
			}

			if done, err := params.EmitJSON(infos); done {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintf(cli.Stdout, "No plugins registered in %s\n", registry.Dir())
				return nil
			}
			printPluginTable(infos, params.Verbose)
			return nil
		},
	}
}

func printPluginTable(infos []pluginInfo, verbose bool) {
	theme := tui.DefaultTheme
	nameWidth, fileWidth := len("NAME"), len("FILE")
	for _, info := range infos {
		nameWidth = max(nameWidth, len(info.Name))
		fileWidth = max(fileWidth, len(info.FileName))
	}
	nameWidth += 2
	fileWidth += 2
	stateWidth := len("disabled") + 2

	header := tui.PadRight("NAME", nameWidth) + tui.PadRight("FILE", fileWidth) + "STATE"
	if verbose {
		header = tui.PadRight(header, nameWidth+fileWidth+stateWidth) + "LOADER NAME"
	}
	fmt.Fprintln(cli.Stdout, theme.Header(header))

	for _, info := range infos {
		line := tui.PadRight(info.Name, nameWidth) +
			tui.PadRight(info.FileName, fileWidth) +
			tui.PadRight(theme.PluginState(info.Enabled), stateWidth)
		if verbose {
			line += info.LoaderName + "\n  " + theme.Faint("blake3:"+info.Digest)
		}
		fmt.Fprintln(cli.Stdout, line)
	}
}

type pluginAddParams struct {
	cli.ConfigFile
	cli.JSONOutput
	Name     string `flag:"name" desc:"display name when reading from stdin"`
	Disabled bool   `flag:"disabled" desc:"register the plugin disabled"`
}

func pluginAddCommand() *cli.Command {
	var params pluginAddParams
	return &cli.Command{
		Name:    "add",
		Summary: "Copy a plugin into the registry",
		Description: `Copy a plugin into the plugin directory and append it to the manifest,
enabled. The stored file name is made unique (name.so, name_1.so, ...)
and always ends in .so. Pass "-" to read the plugin from stdin.`,
		Usage: "patchbay plugin add <file|-> [flags]",
		Examples: []cli.Example{
			{Description: "Register a plugin from a build directory", Command: "patchbay plugin add ./build/libcolor.so"},
			{Description: "Register a downloaded plugin from stdin", Command: "curl -sL $URL | patchbay plugin add - --name libcolor.so"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("add", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("usage: patchbay plugin add <file|->")
			}
			registry, err := openRegistry(&params.ConfigFile, logger)
			if err != nil {
				return err
			}

			var source plugin.Source
			if args[0] == "-" {
				source = plugin.ReaderSource(params.Name, stdin)
			} else {
				if _, err := os.Stat(args[0]); err != nil {
					return cli.NotFound("plugin file %s: %w", args[0], err)
				}
				source = plugin.FileSource(args[0])
			}

			entry, err := registry.Add(source)
			if err != nil {
				return registryError(err)
			}
			if params.Disabled {
				if err := registry.SetEnabled(entry.FileName, false); err != nil {
					return registryError(err)
				}
				entry.Enabled = false
			}
			logger.Info("plugin added", "name", entry.Name, "file", entry.FileName)

			if done, err := params.EmitJSON(entry); done {
				return err
			}
			fmt.Fprintf(cli.Stdout, "Added %s as %s (%s)\n",
				entry.Name, entry.FileName, tui.DefaultTheme.PluginState(entry.Enabled))
			return nil
		},
	}
}

type pluginFileParams struct {
	cli.ConfigFile
}

func pluginRemoveCommand() *cli.Command {
	var params pluginFileParams
	return &cli.Command{
		Name:    "remove",
		Summary: "Delete a plugin and its manifest entry",
		Usage:   "patchbay plugin remove <file-name> [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("remove", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("usage: patchbay plugin remove <file-name>")
			}
			registry, err := openRegistry(&params.ConfigFile, logger)
			if err != nil {
				return err
			}
			if err := registry.Remove(args[0]); err != nil {
				return registryError(err)
			}
			fmt.Fprintf(cli.Stdout, "Removed %s\n", args[0])
			return nil
		},
	}
}

func pluginToggleCommand(name string, enabled bool) *cli.Command {
	var params pluginFileParams
	summary := "Enable a registered plugin"
	if !enabled {
		summary = "Disable a registered plugin without removing it"
	}
	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   "patchbay plugin " + name + " <file-name> [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams(name, &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("usage: patchbay plugin %s <file-name>", name)
			}
			registry, err := openRegistry(&params.ConfigFile, logger)
			if err != nil {
				return err
			}
			fileName := args[0]
			registered := slices.ContainsFunc(registry.List(), func(entry plugin.Entry) bool {
				return entry.FileName == fileName
			})
			if !registered {
				return cli.NotFound("no plugin registered as %s", fileName).
					WithHint("Run 'patchbay plugin list' to see registered file names.")
			}
			if err := registry.SetEnabled(fileName, enabled); err != nil {
				return registryError(err)
			}
			fmt.Fprintf(cli.Stdout, "%s %s\n", fileName, tui.DefaultTheme.PluginState(enabled))
			return nil
		},
	}
}

func pluginLoaderNameCommand() *cli.Command {
	return &cli.Command{
		Name:    "loader-name",
		Summary: "Print the name the engine loads a plugin file under",
		Usage:   "patchbay plugin loader-name <file-name>",
		Examples: []cli.Example{
			{Command: "patchbay plugin loader-name libcolor.so   # libhachimi_color.so"},
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("usage: patchbay plugin loader-name <file-name>")
			}
			fmt.Fprintln(cli.Stdout, plugin.LoaderName(args[0]))
			return nil
		},
	}
}

type pluginEnabledParams struct {
	cli.ConfigFile
	cli.JSONOutput
}

func pluginEnabledCommand() *cli.Command {
	var params pluginEnabledParams
	return &cli.Command{
		Name:    "enabled",
		Summary: "Print absolute paths of the plugins to load",
		Description: `Print, in load order, the absolute path of every enabled plugin whose
file is present. This is the list the patch engine consumes.`,
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("enabled", &params) },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return cli.Validation("usage: patchbay plugin enabled [flags]")
			}
			registry, err := openRegistry(&params.ConfigFile, logger)
			if err != nil {
				return err
			}
			paths := registry.EnabledFiles()
			if done, err := params.EmitJSON(paths); done {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(cli.Stdout, path)
			}
			return nil
		},
	}
}
