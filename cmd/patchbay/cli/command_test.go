// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "patchbay",
		Subcommands: []*Command{
			{
				Name: "plugin",
				Subcommands: []*Command{
					{
						Name: "remove",
						Run: func(_ context.Context, args []string, _ *slog.Logger) error {
							called = "plugin remove"
							receivedArgs = args
							return nil
						},
					},
				},
			},
			{
				Name: "version",
				Run: func(context.Context, []string, *slog.Logger) error {
					called = "version"
					return nil
				},
			},
		},
	}

	if err := root.Execute(t.Context(), []string{"plugin", "remove", "hook.so"}, discardLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "plugin remove" {
		t.Errorf("dispatched to %q, want %q", called, "plugin remove")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "hook.so" {
		t.Errorf("args = %v, want [hook.so]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var params struct {
		JSONOutput
		Verbose bool          `flag:"verbose,v" desc:"more detail"`
		Timeout time.Duration `flag:"timeout" default:"5s" desc:"how long to wait"`
	}
	var receivedArgs []string

	command := &Command{
		Name:  "list",
		Flags: func() *pflag.FlagSet { return FlagsFromParams("list", &params) },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			receivedArgs = args
			return nil
		},
	}

	if err := command.Execute(t.Context(), []string{"--json", "-v", "extra"}, discardLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !params.OutputJSON || !params.Verbose {
		t.Errorf("params = %+v, want --json and --verbose set", params)
	}
	if params.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want the 5s default", params.Timeout)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "extra" {
		t.Errorf("args = %v, want [extra]", receivedArgs)
	}
}

func TestCommand_Execute_UnknownSubcommandSuggests(t *testing.T) {
	root := &Command{
		Name: "patchbay",
		Subcommands: []*Command{
			{Name: "plugin", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
			{Name: "install", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
		},
	}

	err := root.Execute(t.Context(), []string{"plgin"}, discardLogger())
	if err == nil {
		t.Fatal("Execute() succeeded for an unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "plugin"`) {
		t.Errorf("error = %q, want a suggestion for plugin", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggests(t *testing.T) {
	var params struct {
		Verbose bool `flag:"verbose" desc:"more detail"`
	}
	command := &Command{
		Name:  "list",
		Flags: func() *pflag.FlagSet { return FlagsFromParams("list", &params) },
		Run:   func(context.Context, []string, *slog.Logger) error { return nil },
	}

	err := command.Execute(t.Context(), []string{"--verbos"}, discardLogger())
	if err == nil {
		t.Fatal("Execute() accepted an unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --verbose") {
		t.Errorf("error = %q, want a suggestion for --verbose", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	root := &Command{
		Name:        "plugin",
		Subcommands: []*Command{{Name: "list"}},
	}
	if err := root.Execute(t.Context(), nil, discardLogger()); err == nil {
		t.Fatal("Execute() with no subcommand succeeded")
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	root := &Command{
		Name:        "patchbay",
		Description: "Plugin registry and privileged installs.",
		Subcommands: []*Command{
			{Name: "plugin", Summary: "Manage plugins"},
			{Name: "status", Summary: "Show broker status"},
		},
		Examples: []Example{{Description: "List plugins", Command: "patchbay plugin list"}},
	}

	var buffer bytes.Buffer
	root.PrintHelp(&buffer)
	help := buffer.String()

	for _, want := range []string{
		"Plugin registry and privileged installs.",
		"patchbay <command> [flags]",
		"plugin",
		"Manage plugins",
		"# List plugins",
		"patchbay <command> --help",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestConfigFileFlag(t *testing.T) {
	var params struct {
		ConfigFile
	}
	flagSet := FlagsFromParams("status", &params)
	if err := flagSet.Parse([]string{"--config", "/etc/patchbay.yaml"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.Path != "/etc/patchbay.yaml" {
		t.Errorf("Path = %q", params.Path)
	}
}

func TestBindFlagsRejectsUnsupportedType(t *testing.T) {
	var params struct {
		Ratio float32 `flag:"ratio"`
	}
	if err := BindFlags(&params, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Fatal("BindFlags accepted a float32 field")
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"kitten", "sitting", 3},
		{"enable", "enalbe", 2},
		{"plugin", "plugins", 1},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}
