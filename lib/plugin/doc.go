// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package plugin manages the directory of native add-on modules that
// the patch engine loads into the target process.
//
// A [Registry] owns one directory holding the plugin binaries and a
// manifest, plugins.json, listing them in display order:
//
//	[{"name": "graphics", "fileName": "graphics.so", "enabled": true}]
//
// The manifest is the registry's only persisted state and is rewritten
// whole on every change. Readers are lenient: a missing or corrupt
// manifest reads as empty, unknown fields are ignored, and comments
// and trailing commas are accepted so a hand-edited file still loads.
//
// Mutations are serialized within the process by a mutex and across
// processes by an advisory lock on plugins.lock, so the CLI and a
// long-running caller can share a directory. Reads take no lock; they
// see either the old manifest or the new one because writes replace
// the file by rename.
//
// Plugins are copied as-is. Whether a file is a loadable module is
// for the patch engine to decide when it loads it.
package plugin
