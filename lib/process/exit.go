// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// exitCoder is implemented by errors that carry their own exit code
// and whose command has already printed its output.
type exitCoder interface {
	ExitCode() int
}

// Exit terminates the process for a non-nil err returned by a CLI
// command. Errors carrying an exit code exit silently with that code;
// anything else is reported via Fatal.
func Exit(err error) {
	var coder exitCoder
	if errors.As(err, &coder) {
		os.Exit(coder.ExitCode())
	}
	Fatal(err)
}

// NewLogger returns the JSON logger daemons write to w. Debug enables
// debug-level records.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
