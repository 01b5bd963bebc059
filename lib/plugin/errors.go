// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"errors"
	"fmt"
)

// ErrRegistryIO classifies failures reading or writing plugin files
// or the manifest. Every *RegistryError matches it with errors.Is.
var ErrRegistryIO = errors.New("plugin registry I/O failure")

// ErrInvalidFileName is wrapped by errors for names that are not plugin
// files inside the registry directory.
var ErrInvalidFileName = errors.New("invalid plugin file name")

// RegistryError describes a failed registry operation.
type RegistryError struct {
	// Op is the registry operation: "add", "save", "remove", ...
	Op string
	// Path is the file the operation failed on.
	Path string
	Err  error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("plugin %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// Is reports ErrRegistryIO as a match so callers can classify without
// a type assertion.
func (e *RegistryError) Is(target error) bool {
	return target == ErrRegistryIO
}
