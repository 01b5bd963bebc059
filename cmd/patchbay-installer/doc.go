// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Patchbay-installer is the privileged installer worker. The broker
// launches it with --socket; it serves the install action, staging the
// requested files and committing them into installer.target_dir. It
// exits on SIGTERM or when the broker dies.
package main
