// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers for the patchbay binaries:
// the pre-logger fatal path, exit-code propagation from CLI commands,
// and construction of the JSON slog logger the daemons write to
// stderr.
package process
