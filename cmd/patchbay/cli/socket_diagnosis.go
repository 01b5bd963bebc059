// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"syscall"
)

// DiagnoseSocketError turns a failure to reach the broker socket into
// a ToolError with an actionable hint. It returns nil for errors it
// does not recognize; the caller then wraps err itself.
func DiagnoseSocketError(err error, socketPath string) *ToolError {
	switch {
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return Forbidden("permission denied accessing %s", socketPath).
			WithHint("Check the socket's owner and mode: ls -la " + socketPath + "\n" +
				"The broker sets the mode with --socket-mode; 0660 with a shared group is typical.")
	case errors.Is(err, syscall.ENOENT), errors.Is(err, syscall.ECONNREFUSED):
		return Transient("broker is not running at %s", socketPath).
			WithHint("Start it with 'patchbay-broker', or point broker.socket_path in the config at a running broker.")
	}
	return nil
}
