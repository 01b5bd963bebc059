// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Patchbay is the user-facing CLI. It manages the plugin registry the
// patch engine loads from, installs files through the privileged
// broker, and reports whether the broker is reachable.
//
// Set PATCHBAY_DEBUG to see debug-level logs on stderr.
package main
