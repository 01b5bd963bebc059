// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 content digests of files.
//
// The broker hashes each configured worker binary when it launches a
// worker and records the digest beside the running process. A later
// bind that finds the binary on disk has changed treats the running
// worker as stale, even if the caller's version tag matches, and
// relaunches it. The plugin CLI uses the same digest to identify
// plugin files in verbose listings.
//
//   - [HashFile] streams a file through BLAKE3 in constant memory
//   - [FormatDigest] / [ParseDigest] convert to and from hex
package binhash
