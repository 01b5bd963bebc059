// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patchbay.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestResolveDefaultsExpandPaths(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	t.Setenv("HOME", "/home/tester")

	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := "/home/tester/.local/share/patchbay/plugins"; cfg.Paths.Plugins != want {
		t.Errorf("Paths.Plugins = %q, want %q", cfg.Paths.Plugins, want)
	}
	if cfg.Broker.SocketPath != "/run/patchbay/broker.sock" {
		t.Errorf("Broker.SocketPath = %q", cfg.Broker.SocketPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate default: %v", err)
	}
}

func TestLoadRequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	_, err := Load()
	if err == nil {
		t.Fatal("Load succeeded without PATCHBAY_CONFIG")
	}
	if !strings.Contains(err.Error(), EnvironmentVariable) {
		t.Errorf("error %q does not name %s", err, EnvironmentVariable)
	}
}

func TestLoadFileWithOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: production
paths:
  root: /srv/patchbay
  run: /tmp/pb-run
broker:
  bind_timeout: 5s
  workers:
    installer: ${PATCHBAY_ROOT}/bin/patchbay-installer
production:
  broker:
    bind_timeout: 10s
  installer:
    target_dir: ${PATCHBAY_ROOT}/installed
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	timeout, err := cfg.BindTimeout()
	if err != nil {
		t.Fatalf("BindTimeout: %v", err)
	}
	if timeout != 10*time.Second {
		t.Errorf("BindTimeout = %v, want production override 10s", timeout)
	}
	if cfg.Installer.TargetDir != "/srv/patchbay/installed" {
		t.Errorf("Installer.TargetDir = %q", cfg.Installer.TargetDir)
	}
	if cfg.Paths.Plugins != "/srv/patchbay/plugins" {
		t.Errorf("Paths.Plugins = %q", cfg.Paths.Plugins)
	}
	if cfg.Broker.SocketPath != "/tmp/pb-run/broker.sock" {
		t.Errorf("Broker.SocketPath = %q", cfg.Broker.SocketPath)
	}

	binary, err := cfg.WorkerBinary("installer")
	if err != nil {
		t.Fatalf("WorkerBinary: %v", err)
	}
	if binary != "/srv/patchbay/bin/patchbay-installer" {
		t.Errorf("WorkerBinary = %q", binary)
	}
}

func TestLoadFileThroughEnvironment(t *testing.T) {
	path := writeConfig(t, "installer:\n  process_name_suffix: staging\n")
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Installer.ProcessNameSuffix != "staging" {
		t.Errorf("ProcessNameSuffix = %q, want staging", cfg.Installer.ProcessNameSuffix)
	}
	if cfg.Installer.Component != "installer" {
		t.Errorf("Component = %q, want default kept", cfg.Installer.Component)
	}
}

func TestExpandVarsDefault(t *testing.T) {
	t.Setenv("PATCHBAY_TEST_UNSET", "")
	got := expandVars("${PATCHBAY_TEST_UNSET:-/fallback}/x", map[string]string{})
	if got != "/fallback/x" {
		t.Errorf("expandVars = %q, want /fallback/x", got)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Environment = "staging"
	cfg.Broker.BindTimeout = "-1s"
	cfg.Installer.Component = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate succeeded on an invalid config")
	}
	for _, fragment := range []string{"invalid environment", "bind_timeout", "installer.component"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("Validate error %q missing %q", err, fragment)
		}
	}
}

func TestLoadFileMalformed(t *testing.T) {
	path := writeConfig(t, "paths: [unterminated")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile accepted malformed YAML")
	}
}
