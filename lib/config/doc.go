// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads patchbay's YAML configuration.
//
// A config file is named explicitly, by --config or PATCHBAY_CONFIG.
// There is no search path. When neither is given, [Resolve] returns
// [Default], which is the documented layout and nothing else.
//
// The file may carry development and production sections that
// override base values for the matching environment. ${VAR} and
// ${VAR:-default} references in path values are expanded after
// overrides are applied; PATCHBAY_ROOT and PATCHBAY_RUN refer to the
// resolved root and run directories.
package config
