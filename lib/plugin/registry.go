// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/patchbay/lib/binhash"
	"github.com/bureau-foundation/patchbay/lib/clock"
)

const (
	// ManifestName is the manifest's file name inside the registry
	// directory.
	ManifestName = "plugins.json"

	// Extension is the required plugin file extension.
	Extension = ".so"

	// LoaderPrefix is the name prefix the patch engine loads plugins
	// under.
	LoaderPrefix = "libhachimi_"

	lockName = "plugins.lock"
)

// Entry is one plugin in the manifest.
type Entry struct {
	// Name is the display name: FileName without its extension.
	Name string `json:"name"`

	// FileName is the plugin's file name inside the registry
	// directory. Unique within the registry.
	FileName string `json:"fileName"`

	Enabled bool `json:"enabled"`
}

// Registry is the plugin directory and its manifest.
type Registry struct {
	dir    string
	logger *slog.Logger
	clock  clock.Clock

	// mu serializes mutations within the process. The file lock
	// serializes them across processes.
	mu sync.Mutex
}

// NewRegistry returns a registry over dir. The directory is created on
// the first mutation.
func NewRegistry(dir string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{dir: dir, logger: logger, clock: clock.Real()}
}

// Dir returns the registry directory.
func (r *Registry) Dir() string {
	return r.dir
}

// List returns the manifest entries in order. A missing manifest is
// empty. A corrupt manifest is logged and also read as empty.
func (r *Registry) List() []Entry {
	manifestPath := filepath.Join(r.dir, ManifestName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("reading plugin manifest", "path", manifestPath, "error", err)
		}
		return []Entry{}
	}

	var entries []Entry
	if err := json.Unmarshal(jsonc.ToJSON(data), &entries); err != nil {
		r.logger.Warn("plugin manifest is corrupt, treating as empty",
			"path", manifestPath,
			"error", err,
		)
		return []Entry{}
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

// Save replaces the manifest with entries.
func (r *Registry) Save(entries []Entry) error {
	return r.withLock("save", func() error {
		return r.save(entries)
	})
}

// Add copies a plugin into the directory under a name no existing file
// uses and appends an enabled entry for it.
func (r *Registry) Add(source Source) (Entry, error) {
	var entry Entry
	err := r.withLock("add", func() error {
		reader, err := source.Open()
		if err != nil {
			return &RegistryError{Op: "add", Path: source.Name(), Err: err}
		}
		defer reader.Close()

		fileName, err := r.copyUnique(displayName(source), reader)
		if err != nil {
			return err
		}

		entry = Entry{
			Name:     strings.TrimSuffix(fileName, Extension),
			FileName: fileName,
			Enabled:  true,
		}
		if err := r.save(append(r.List(), entry)); err != nil {
			return err
		}
		r.logger.Info("plugin added", "file", fileName)
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// SetEnabled sets the enabled flag of the entry for fileName. No entry
// for fileName is not an error.
func (r *Registry) SetEnabled(fileName string, enabled bool) error {
	return r.withLock("set-enabled", func() error {
		entries := r.List()
		matched := false
		for index := range entries {
			if entries[index].FileName == fileName {
				entries[index].Enabled = enabled
				matched = true
			}
		}
		if !matched {
			return nil
		}
		return r.save(entries)
	})
}

// Remove deletes the plugin file and its manifest entry. Both steps
// are attempted even if the other fails. Removing an absent plugin is
// not an error.
func (r *Registry) Remove(fileName string) error {
	if err := checkFileName(fileName); err != nil {
		return &RegistryError{Op: "remove", Path: fileName, Err: err}
	}
	return r.withLock("remove", func() error {
		var errs []error

		pluginPath := filepath.Join(r.dir, fileName)
		if err := os.Remove(pluginPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, &RegistryError{Op: "remove", Path: pluginPath, Err: err})
		}

		entries := r.List()
		kept := entries[:0]
		for _, entry := range entries {
			if entry.FileName != fileName {
				kept = append(kept, entry)
			}
		}
		if len(kept) != len(entries) {
			if err := r.save(kept); err != nil {
				errs = append(errs, err)
			}
		}

		return errors.Join(errs...)
	})
}

// EnabledFiles returns absolute paths of enabled plugins whose file
// is present as a regular file.
func (r *Registry) EnabledFiles() []string {
	dir, err := filepath.Abs(r.dir)
	if err != nil {
		dir = r.dir
	}

	var paths []string
	for _, entry := range r.List() {
		if !entry.Enabled || checkFileName(entry.FileName) != nil {
			continue
		}
		pluginPath := filepath.Join(dir, entry.FileName)
		info, err := os.Stat(pluginPath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		paths = append(paths, pluginPath)
	}
	return paths
}

// Digest returns the hex BLAKE3 digest of a plugin file.
func (r *Registry) Digest(fileName string) (string, error) {
	if err := checkFileName(fileName); err != nil {
		return "", &RegistryError{Op: "digest", Path: fileName, Err: err}
	}
	pluginPath := filepath.Join(r.dir, fileName)
	digest, err := binhash.HashFile(pluginPath)
	if err != nil {
		return "", &RegistryError{Op: "digest", Path: pluginPath, Err: err}
	}
	return binhash.FormatDigest(digest), nil
}

// LoaderName returns the name the patch engine loads fileName under.
// Names already carrying LoaderPrefix are returned unchanged;
// otherwise one leading "lib" is dropped and LoaderPrefix prepended.
func LoaderName(fileName string) string {
	if strings.HasPrefix(fileName, LoaderPrefix) {
		return fileName
	}
	return LoaderPrefix + strings.TrimPrefix(fileName, "lib")
}

// withLock creates the directory, then runs fn holding the registry
// mutex and the directory's file lock.
func (r *Registry) withLock(op string, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return &RegistryError{Op: op, Path: r.dir, Err: err}
	}
	lock, err := acquireFileLock(filepath.Join(r.dir, lockName), r.clock)
	if err != nil {
		return &RegistryError{Op: op, Path: r.dir, Err: err}
	}
	defer lock.release()

	return fn()
}

// save writes entries to a temporary file and renames it over the
// manifest. The caller holds the lock.
func (r *Registry) save(entries []Entry) error {
	manifestPath := filepath.Join(r.dir, ManifestName)
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return &RegistryError{Op: "save", Path: manifestPath, Err: err}
	}

	tmpFile, err := os.CreateTemp(r.dir, "plugins-*.json")
	if err != nil {
		return &RegistryError{Op: "save", Path: manifestPath, Err: err}
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(append(data, '\n')); err != nil {
		tmpFile.Close()
		return &RegistryError{Op: "save", Path: manifestPath, Err: err}
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return &RegistryError{Op: "save", Path: manifestPath, Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &RegistryError{Op: "save", Path: manifestPath, Err: err}
	}
	if err := os.Rename(tmpPath, manifestPath); err != nil {
		return &RegistryError{Op: "save", Path: manifestPath, Err: err}
	}

	success = true
	return nil
}

// copyUnique creates the first free name in the sequence name.so,
// name_1.so, name_2.so, ... and copies reader into it. The free name
// is claimed with O_EXCL so a file that appears between probe and
// create is skipped rather than overwritten.
func (r *Registry) copyUnique(name string, reader io.Reader) (string, error) {
	base := strings.TrimSuffix(name, Extension)
	for counter := 0; ; counter++ {
		candidate := name
		if counter > 0 {
			candidate = base + "_" + strconv.Itoa(counter) + Extension
		}
		targetPath := filepath.Join(r.dir, candidate)
		if _, err := os.Lstat(targetPath); err == nil {
			continue
		}

		file, err := os.OpenFile(targetPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", &RegistryError{Op: "add", Path: targetPath, Err: err}
		}

		if err := copyAndSync(file, reader); err != nil {
			os.Remove(targetPath)
			return "", &RegistryError{Op: "add", Path: targetPath, Err: err}
		}
		return candidate, nil
	}
}

func copyAndSync(file *os.File, reader io.Reader) error {
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return fmt.Errorf("copying: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("syncing: %w", err)
	}
	return file.Close()
}

// checkFileName rejects names that would escape the registry
// directory or that name something other than a plugin file, such as
// the manifest or the lock file.
func checkFileName(fileName string) error {
	switch {
	case fileName == "" || fileName == "." || fileName == "..",
		strings.ContainsRune(fileName, filepath.Separator):
		return fmt.Errorf("%w: %q", ErrInvalidFileName, fileName)
	case fileName == ManifestName || fileName == lockName,
		!strings.HasSuffix(fileName, Extension) || fileName == Extension:
		return fmt.Errorf("%w: %q is not a %s plugin file", ErrInvalidFileName, fileName, Extension)
	}
	return nil
}
