// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development relaxes defaults for a workstation checkout.
	Development Environment = "development"
	// Production is an installed system.
	Production Environment = "production"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "PATCHBAY_CONFIG"

// Config is the master configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Paths     PathsConfig     `yaml:"paths"`
	Broker    BrokerConfig    `yaml:"broker"`
	Installer InstallerConfig `yaml:"installer"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides holds the per-environment overridable sections.
type ConfigOverrides struct {
	Paths     *PathsConfig     `yaml:"paths,omitempty"`
	Broker    *BrokerConfig    `yaml:"broker,omitempty"`
	Installer *InstallerConfig `yaml:"installer,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for per-user state.
	Root string `yaml:"root"`

	// Plugins holds the plugin manifest and plugin binaries.
	Plugins string `yaml:"plugins"`

	// Run holds the broker socket and per-worker sockets.
	Run string `yaml:"run"`
}

// BrokerConfig configures the privileged broker and how clients
// reach it.
type BrokerConfig struct {
	// SocketPath is the broker's Unix socket.
	SocketPath string `yaml:"socket_path"`

	// BindTimeout bounds how long a client waits for a bind to
	// connect before reporting the service as unavailable.
	BindTimeout string `yaml:"bind_timeout"`

	// Workers maps a component name to the worker binary the broker
	// launches for it. Components missing here are resolved by
	// WorkerBinary.
	Workers map[string]string `yaml:"workers,omitempty"`
}

// InstallerConfig configures the install bridge.
type InstallerConfig struct {
	// Component is the worker component the bridge binds.
	Component string `yaml:"component"`

	// ProcessNameSuffix isolates the bridge's worker from other bound
	// instances of the same component.
	ProcessNameSuffix string `yaml:"process_name_suffix"`

	// TargetDir is where the installer worker commits files.
	TargetDir string `yaml:"target_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "patchbay")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:    defaultRoot,
			Plugins: "${PATCHBAY_ROOT}/plugins",
			Run:     "/run/patchbay",
		},
		Broker: BrokerConfig{
			SocketPath:  "${PATCHBAY_RUN}/broker.sock",
			BindTimeout: "30s",
		},
		Installer: InstallerConfig{
			Component:         "installer",
			ProcessNameSuffix: "installer",
			TargetDir:         "/var/lib/patchbay/installed",
		},
	}
}

// Resolve loads the config named by path, else by PATCHBAY_CONFIG,
// else returns the expanded Default.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if os.Getenv(EnvironmentVariable) != "" {
		return Load()
	}
	cfg := Default()
	cfg.expandVariables()
	return cfg, nil
}

// Load loads configuration from the file named by PATCHBAY_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your patchbay.yaml, or use --config", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over the defaults, applies
// the environment's overrides, and expands variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Plugins != "" {
			c.Paths.Plugins = overrides.Paths.Plugins
		}
		if overrides.Paths.Run != "" {
			c.Paths.Run = overrides.Paths.Run
		}
	}

	if overrides.Broker != nil {
		if overrides.Broker.SocketPath != "" {
			c.Broker.SocketPath = overrides.Broker.SocketPath
		}
		if overrides.Broker.BindTimeout != "" {
			c.Broker.BindTimeout = overrides.Broker.BindTimeout
		}
		for component, binary := range overrides.Broker.Workers {
			if c.Broker.Workers == nil {
				c.Broker.Workers = make(map[string]string)
			}
			c.Broker.Workers[component] = binary
		}
	}

	if overrides.Installer != nil {
		if overrides.Installer.Component != "" {
			c.Installer.Component = overrides.Installer.Component
		}
		if overrides.Installer.ProcessNameSuffix != "" {
			c.Installer.ProcessNameSuffix = overrides.Installer.ProcessNameSuffix
		}
		if overrides.Installer.TargetDir != "" {
			c.Installer.TargetDir = overrides.Installer.TargetDir
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path values.
// Root and Run expand first so later values can refer to them.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["PATCHBAY_ROOT"] = c.Paths.Root
	c.Paths.Run = expandVars(c.Paths.Run, vars)
	vars["PATCHBAY_RUN"] = c.Paths.Run

	c.Paths.Plugins = expandVars(c.Paths.Plugins, vars)
	c.Broker.SocketPath = expandVars(c.Broker.SocketPath, vars)
	c.Installer.TargetDir = expandVars(c.Installer.TargetDir, vars)
	for component, binary := range c.Broker.Workers {
		c.Broker.Workers[component] = expandVars(binary, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Provided vars first, then the process environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if c.Paths.Plugins == "" {
		errs = append(errs, fmt.Errorf("paths.plugins is required"))
	}
	if c.Broker.SocketPath == "" {
		errs = append(errs, fmt.Errorf("broker.socket_path is required"))
	}
	if _, err := c.BindTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Installer.Component == "" {
		errs = append(errs, fmt.Errorf("installer.component is required"))
	}
	if c.Installer.ProcessNameSuffix == "" {
		errs = append(errs, fmt.Errorf("installer.process_name_suffix is required"))
	}

	return errors.Join(errs...)
}

// BindTimeout parses Broker.BindTimeout.
func (c *Config) BindTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.Broker.BindTimeout)
	if err != nil {
		return 0, fmt.Errorf("broker.bind_timeout: %w", err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("broker.bind_timeout must be positive, got %s", c.Broker.BindTimeout)
	}
	return timeout, nil
}

// WorkerBinary returns the binary the broker launches for component:
// the configured path if any, else patchbay-<component> beside the
// running executable, else on PATH.
func (c *Config) WorkerBinary(component string) (string, error) {
	if configured, ok := c.Broker.Workers[component]; ok && configured != "" {
		return configured, nil
	}

	name := "patchbay-" + component
	if selfPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(selfPath), name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("no worker binary for component %q: %s not found beside the broker or on PATH", component, name)
	}
	return path, nil
}
