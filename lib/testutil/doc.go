// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by patchbay's package tests.
//
// [SocketDir] returns a short directory under /tmp for Unix sockets:
// sun_path is limited to 108 bytes and t.TempDir() paths routinely
// exceed it once a test name is long.
//
// [RequireReceive], [RequireClosed], and [RequireNoReceive] wrap the
// select-with-timeout pattern.
//
// [WriteFile] creates a fixture file and returns its absolute path.
//
// Helpers call t.Fatalf on failure.
package testutil
