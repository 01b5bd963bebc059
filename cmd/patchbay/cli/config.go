// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/patchbay/lib/config"
)

// ConfigFile is embedded in params structs of commands that need the
// configuration. It adds --config.
type ConfigFile struct {
	Path string
}

// AddFlags registers --config.
func (c *ConfigFile) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.Path, "config", "",
		"path to patchbay.yaml (default: $"+config.EnvironmentVariable+", else built-in defaults)")
}

// Load resolves and validates the configuration.
func (c *ConfigFile) Load() (*config.Config, error) {
	cfg, err := config.Resolve(c.Path)
	if err != nil {
		return nil, Validation("%w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, Validation("invalid configuration: %w", err)
	}
	return cfg, nil
}
