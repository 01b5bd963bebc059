// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Installer performs an install. It returns "" on success and a
// human-readable reason on failure.
type Installer interface {
	Install(ctx context.Context, paths []string) (reason string)
}

// StagedInstaller installs files into TargetDir through a staging
// session.
type StagedInstaller struct {
	TargetDir string
	Logger    *slog.Logger
}

// Install copies every path into TargetDir, replacing files of the
// same name. Either all files are committed or none are.
func (s *StagedInstaller) Install(ctx context.Context, paths []string) string {
	if len(paths) == 0 {
		return "Installation failed: no files to install"
	}

	names := make(map[string]string, len(paths))
	for _, path := range paths {
		if !filepath.IsAbs(path) {
			return fmt.Sprintf("Installation failed: path %q is not absolute", path)
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Sprintf("Installation failed: %s: no such file", path)
		}
		if !info.Mode().IsRegular() {
			return fmt.Sprintf("Installation failed: %s is not a regular file", path)
		}
		name := filepath.Base(path)
		if previous, exists := names[name]; exists {
			return fmt.Sprintf("Installation failed: %s and %s would both install as %s", previous, path, name)
		}
		names[name] = path
	}

	session, err := s.openSession()
	if err != nil {
		return "Installation failed: " + err.Error()
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			s.abandon(session)
			return "Installation failed: " + err.Error()
		}
		if err := stageFile(session, path); err != nil {
			s.abandon(session)
			return "Installation failed: " + err.Error()
		}
	}

	if err := s.commit(session, paths); err != nil {
		s.abandon(session)
		return "Installation failed: " + err.Error()
	}

	s.logger().Info("installation committed", "files", len(paths), "target", s.TargetDir)
	return ""
}

func (s *StagedInstaller) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

// openSession creates a staging directory inside TargetDir so the
// commit renames never cross a filesystem boundary.
func (s *StagedInstaller) openSession() (string, error) {
	if err := os.MkdirAll(s.TargetDir, 0o755); err != nil {
		return "", fmt.Errorf("creating target directory: %w", err)
	}
	session, err := os.MkdirTemp(s.TargetDir, ".session-*")
	if err != nil {
		return "", fmt.Errorf("opening session: %w", err)
	}
	s.logger().Debug("session opened", "session", session)
	return session, nil
}

func (s *StagedInstaller) abandon(session string) {
	if err := os.RemoveAll(session); err != nil {
		s.logger().Warn("abandoning session", "session", session, "error", err)
		return
	}
	s.logger().Debug("session abandoned", "session", session)
}

// committedFile records one rename into the target so it can be
// undone. backup is "" when nothing was replaced.
type committedFile struct {
	name   string
	backup string
}

// commit renames each staged file into the target. A file already in
// the target is first moved into the session as a backup. If any step
// fails, the files committed so far are removed and their backups
// restored, so the target is left as it was.
func (s *StagedInstaller) commit(session string, paths []string) error {
	backupDir, err := os.MkdirTemp(session, ".replaced-*")
	if err != nil {
		return fmt.Errorf("opening backup directory: %w", err)
	}

	var committed []committedFile
	for _, path := range paths {
		name := filepath.Base(path)
		entry, err := s.commitFile(session, backupDir, name)
		if err != nil {
			s.rollback(committed)
			return err
		}
		committed = append(committed, entry)
	}

	if err := os.RemoveAll(session); err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	return syncDir(s.TargetDir)
}

func (s *StagedInstaller) commitFile(session, backupDir, name string) (committedFile, error) {
	target := filepath.Join(s.TargetDir, name)
	entry := committedFile{name: name}

	info, err := os.Lstat(target)
	switch {
	case err == nil && !info.Mode().IsRegular():
		return entry, fmt.Errorf("committing %s: %s exists and is not a regular file", name, target)
	case err == nil:
		entry.backup = filepath.Join(backupDir, name)
		if err := os.Rename(target, entry.backup); err != nil {
			return entry, fmt.Errorf("committing %s: moving aside the installed copy: %w", name, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return entry, fmt.Errorf("committing %s: %w", name, err)
	}

	if err := os.Rename(filepath.Join(session, name), target); err != nil {
		s.restore(entry)
		return entry, fmt.Errorf("committing %s: %w", name, err)
	}
	return entry, nil
}

// rollback undoes committed renames, newest first.
func (s *StagedInstaller) rollback(committed []committedFile) {
	for index := len(committed) - 1; index >= 0; index-- {
		entry := committed[index]
		if entry.backup == "" {
			if err := os.Remove(filepath.Join(s.TargetDir, entry.name)); err != nil {
				s.logger().Warn("rolling back commit", "file", entry.name, "error", err)
			}
			continue
		}
		s.restore(entry)
	}
	if len(committed) > 0 {
		s.logger().Info("commit rolled back", "files", len(committed))
	}
}

// restore moves a backup over the target.
func (s *StagedInstaller) restore(entry committedFile) {
	if entry.backup == "" {
		return
	}
	if err := os.Rename(entry.backup, filepath.Join(s.TargetDir, entry.name)); err != nil {
		s.logger().Error("restoring replaced file", "file", entry.name, "backup", entry.backup, "error", err)
	}
}

// stageFile copies path into session and fsyncs the copy.
func stageFile(session, path string) error {
	source, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	stagedPath := filepath.Join(session, filepath.Base(path))
	staged, err := os.OpenFile(stagedPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("staging %s: %w", path, err)
	}
	if _, err := io.Copy(staged, source); err != nil {
		staged.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := staged.Sync(); err != nil {
		staged.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := staged.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

func syncDir(dir string) error {
	handle, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dir, err)
	}
	defer handle.Close()
	if err := handle.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", dir, err)
	}
	return nil
}
