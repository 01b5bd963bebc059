// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build information injected with -ldflags -X:
//
//   - [Version]: semantic version string
//   - [GitCommit], [BuildTime]: provenance for --version output
//   - [VersionCode]: monotonically increasing integer build number
//   - [DebugBuild]: "true" for debug builds
//
// [Code] and [Debug] expose the last two as typed values. The bridge
// puts both into every worker descriptor: the broker relaunches a
// worker whose build number or debug mode differs from the caller's,
// so a CLI upgrade never talks to a stale installer process.
package version
