// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"io"
	"os"
	"path/filepath"
)

// DefaultName is the display name used when a source has none.
const DefaultName = "plugin.so"

// Source supplies the bytes of a plugin being added.
type Source interface {
	// Name is the source's own name, used to derive the plugin's
	// display and file names. Directory components are ignored.
	Name() string

	// Open returns the plugin bytes. The registry closes the reader.
	Open() (io.ReadCloser, error)
}

// FileSource returns a Source reading the file at path.
func FileSource(path string) Source {
	return fileSource{path: path}
}

type fileSource struct {
	path string
}

func (s fileSource) Name() string { return filepath.Base(s.path) }

func (s fileSource) Open() (io.ReadCloser, error) { return os.Open(s.path) }

// ReaderSource returns a Source over an already-open reader, such as
// an upload or standard input. It can be opened once.
func ReaderSource(name string, r io.Reader) Source {
	return readerSource{name: name, reader: r}
}

type readerSource struct {
	name   string
	reader io.Reader
}

func (s readerSource) Name() string { return s.name }

func (s readerSource) Open() (io.ReadCloser, error) { return io.NopCloser(s.reader), nil }

// displayName derives the on-disk base name for a source: its base
// name, or DefaultName if that is empty, with the .so extension forced.
func displayName(source Source) string {
	name := filepath.Base(source.Name())
	if name == "." || name == "/" || name == "" {
		name = DefaultName
	}
	return ensureSuffix(name)
}

func ensureSuffix(name string) string {
	if filepath.Ext(name) == Extension {
		return name
	}
	return name + Extension
}
