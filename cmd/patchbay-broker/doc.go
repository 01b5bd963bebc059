// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Patchbay-broker is the privileged process that launches workers on
// behalf of unprivileged clients. It listens on broker.socket_path,
// starts a worker when a client binds to it, and stops the worker when
// the last binding of a non-daemon worker ends. Running it with the
// required capability is left to the service manager.
package main
