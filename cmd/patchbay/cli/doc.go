// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the patchbay CLI.
//
// The central type is [Command]: a named node with optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run function.
// [Command.Execute] walks the tree, parses flags, and prints structured
// help. Unknown subcommands and flags get a "did you mean" suggestion
// from Levenshtein distance (see suggest.go).
//
// Parameter structs describe their flags with struct tags and are bound
// by [FlagsFromParams]. Embedding [JSONOutput] adds --json and
// embedding [ConfigFile] adds --config, which resolves the YAML
// configuration the same way the daemons do.
//
// Errors returned from Run are either plain errors, [*ToolError] values
// carrying a category and hint, or [*ExitError] for commands that have
// already printed their own output.
package cli
