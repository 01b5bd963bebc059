// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker is the privileged installer worker: the process the
// broker launches for the "installer" component, and the client handle
// a bound caller uses to reach it.
//
// The worker serves one action, install, which takes a list of
// absolute file paths and answers with a reason string. An empty
// reason means every file was installed; anything else is a
// human-readable failure. Failures are answers, not protocol errors:
// the call itself succeeds and carries the reason.
//
// [StagedInstaller] is the install primitive. It copies each file
// into a private staging directory beside the target, syncs it, then
// renames the staged files into place. Any failure before the renames
// abandons the staging directory and leaves the target untouched, so
// an interrupted install is safe to retry.
package worker
