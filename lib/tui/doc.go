// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui holds the terminal styling shared by patchbay's
// human-readable command output: one color palette and the lipgloss
// styles built from it. Styles degrade to plain text when the output
// is not a color terminal.
package tui
