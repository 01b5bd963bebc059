// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/patchbay/lib/testutil"
)

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestStagedInstallerCommitsAll(t *testing.T) {
	sourceDir := t.TempDir()
	target := filepath.Join(t.TempDir(), "installed")
	base := testutil.WriteFile(t, sourceDir, "base.apk", []byte("base"))
	split := testutil.WriteFile(t, sourceDir, "split_config.apk", []byte("split"))

	installer := &StagedInstaller{TargetDir: target}
	if reason := installer.Install(context.Background(), []string{base, split}); reason != "" {
		t.Fatalf("Install reason = %q, want success", reason)
	}

	names := listDir(t, target)
	if len(names) != 2 {
		t.Fatalf("target holds %v, want two files and no session", names)
	}
	data, _ := os.ReadFile(filepath.Join(target, "split_config.apk"))
	if string(data) != "split" {
		t.Errorf("split_config.apk = %q", data)
	}
}

func TestStagedInstallerReplacesExisting(t *testing.T) {
	sourceDir := t.TempDir()
	target := t.TempDir()
	testutil.WriteFile(t, target, "app.apk", []byte("old"))
	path := testutil.WriteFile(t, sourceDir, "app.apk", []byte("new"))

	installer := &StagedInstaller{TargetDir: target}
	for range 2 {
		if reason := installer.Install(context.Background(), []string{path}); reason != "" {
			t.Fatalf("Install reason = %q", reason)
		}
	}
	data, _ := os.ReadFile(filepath.Join(target, "app.apk"))
	if string(data) != "new" {
		t.Errorf("app.apk = %q, want new", data)
	}
}

func TestStagedInstallerRollsBackPartialCommit(t *testing.T) {
	sourceDir := t.TempDir()
	target := t.TempDir()
	testutil.WriteFile(t, target, "a.apk", []byte("old"))
	// A non-empty directory where b.apk would land makes its commit fail
	// after a.apk has already been renamed into place.
	testutil.WriteFile(t, filepath.Join(target, "b.apk"), "keep", []byte("x"))
	first := testutil.WriteFile(t, sourceDir, "a.apk", []byte("new"))
	second := testutil.WriteFile(t, sourceDir, "b.apk", []byte("b"))

	reason := (&StagedInstaller{TargetDir: target}).Install(context.Background(), []string{first, second})
	if !strings.HasPrefix(reason, "Installation failed: committing b.apk") {
		t.Fatalf("reason = %q", reason)
	}

	data, err := os.ReadFile(filepath.Join(target, "a.apk"))
	if err != nil || string(data) != "old" {
		t.Errorf("a.apk = %q, %v; want the original content restored", data, err)
	}
	if _, err := os.Stat(filepath.Join(target, "b.apk", "keep")); err != nil {
		t.Errorf("b.apk directory disturbed: %v", err)
	}
	names := listDir(t, target)
	if len(names) != 2 {
		t.Errorf("target holds %v, want only a.apk and b.apk", names)
	}
}

func TestStagedInstallerRollsBackNewFiles(t *testing.T) {
	sourceDir := t.TempDir()
	target := t.TempDir()
	testutil.WriteFile(t, filepath.Join(target, "b.apk"), "keep", []byte("x"))
	first := testutil.WriteFile(t, sourceDir, "a.apk", []byte("new"))
	second := testutil.WriteFile(t, sourceDir, "b.apk", []byte("b"))

	reason := (&StagedInstaller{TargetDir: target}).Install(context.Background(), []string{first, second})
	if reason == "" {
		t.Fatal("Install succeeded over a directory")
	}
	if _, err := os.Stat(filepath.Join(target, "a.apk")); !os.IsNotExist(err) {
		t.Errorf("a.apk left in target after failed commit: %v", err)
	}
}

func TestStagedInstallerValidation(t *testing.T) {
	sourceDir := t.TempDir()
	first := testutil.WriteFile(t, sourceDir, "app.apk", []byte("a"))
	otherDir := t.TempDir()
	second := testutil.WriteFile(t, otherDir, "app.apk", []byte("b"))

	tests := []struct {
		name     string
		paths    []string
		fragment string
	}{
		{"empty", nil, "no files to install"},
		{"relative", []string{"app.apk"}, "not absolute"},
		{"missing", []string{filepath.Join(sourceDir, "gone.apk")}, "no such file"},
		{"directory", []string{sourceDir}, "not a regular file"},
		{"collision", []string{first, second}, "would both install as app.apk"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			target := t.TempDir()
			reason := (&StagedInstaller{TargetDir: target}).Install(context.Background(), test.paths)
			if !strings.HasPrefix(reason, "Installation failed: ") {
				t.Errorf("reason %q lacks failure prefix", reason)
			}
			if !strings.Contains(reason, test.fragment) {
				t.Errorf("reason %q does not mention %q", reason, test.fragment)
			}
			if names := listDir(t, target); len(names) != 0 {
				t.Errorf("target modified: %v", names)
			}
		})
	}
}

func TestStagedInstallerAbandonsOnCancel(t *testing.T) {
	sourceDir := t.TempDir()
	target := t.TempDir()
	path := testutil.WriteFile(t, sourceDir, "app.apk", []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reason := (&StagedInstaller{TargetDir: target}).Install(ctx, []string{path})
	if !strings.Contains(reason, "context canceled") {
		t.Errorf("reason = %q", reason)
	}
	if names := listDir(t, target); len(names) != 0 {
		t.Errorf("session not abandoned: %v", names)
	}
}

func TestStagedInstallerTargetUnwritable(t *testing.T) {
	sourceDir := t.TempDir()
	path := testutil.WriteFile(t, sourceDir, "app.apk", []byte("a"))
	blocker := testutil.WriteFile(t, t.TempDir(), "file", []byte("x"))

	reason := (&StagedInstaller{TargetDir: filepath.Join(blocker, "target")}).Install(context.Background(), []string{path})
	if !strings.HasPrefix(reason, "Installation failed: creating target directory") {
		t.Errorf("reason = %q", reason)
	}
}
