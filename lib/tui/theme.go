// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color palette for patchbay's terminal output. Colors are
// ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	HeaderForeground lipgloss.Color

	// Plugin state.
	Enabled  lipgloss.Color
	Disabled lipgloss.Color

	// Service availability.
	Available   lipgloss.Color
	Unavailable lipgloss.Color

	// Install outcome lines.
	Success lipgloss.Color
	Failure lipgloss.Color
}

// DefaultTheme targets a dark 256-color terminal.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	HeaderForeground: lipgloss.Color("255"),

	Enabled:  lipgloss.Color("114"), // green
	Disabled: lipgloss.Color("245"), // gray

	Available:   lipgloss.Color("114"),
	Unavailable: lipgloss.Color("196"), // red

	Success: lipgloss.Color("114"),
	Failure: lipgloss.Color("196"),
}

// Header renders a table header.
func (theme Theme) Header(text string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground).Render(text)
}

// Faint renders secondary detail such as digests and paths.
func (theme Theme) Faint(text string) string {
	return lipgloss.NewStyle().Foreground(theme.FaintText).Render(text)
}

// PluginState renders "enabled" or "disabled" in its color.
func (theme Theme) PluginState(enabled bool) string {
	if enabled {
		return lipgloss.NewStyle().Foreground(theme.Enabled).Render("enabled")
	}
	return lipgloss.NewStyle().Foreground(theme.Disabled).Render("disabled")
}

// Availability renders "available" or "unavailable" in its color.
func (theme Theme) Availability(available bool) string {
	if available {
		return lipgloss.NewStyle().Foreground(theme.Available).Render("available")
	}
	return lipgloss.NewStyle().Foreground(theme.Unavailable).Bold(true).Render("unavailable")
}

// Outcome renders an install log line colored by success.
func (theme Theme) Outcome(line string, succeeded bool) string {
	color := theme.Failure
	if succeeded {
		color = theme.Success
	}
	return lipgloss.NewStyle().Foreground(color).Render(line)
}

// Width is the display width of rendered text, ignoring escape
// sequences.
func Width(text string) int {
	return lipgloss.Width(text)
}

// PadRight pads rendered text with spaces to width display columns.
func PadRight(text string, width int) string {
	if gap := width - lipgloss.Width(text); gap > 0 {
		return text + strings.Repeat(" ", gap)
	}
	return text
}
