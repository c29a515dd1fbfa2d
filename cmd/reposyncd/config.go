// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/reposync/internal/errors"
)

const configVersion = "1"

// Config is the on-disk .reposync/config.yaml shape.
type Config struct {
	Version     string     `yaml:"version"`
	DataDir     string     `yaml:"data_dir,omitempty"`
	CheckoutDir string     `yaml:"checkout_dir,omitempty"`
	Sync        SyncConfig `yaml:"sync"`
}

// SyncConfig holds the scheduler's configuration knobs.
type SyncConfig struct {
	Enabled                    bool `yaml:"enabled"`
	CheckIntervalSeconds       int  `yaml:"check_interval_seconds"`
	DefaultSyncIntervalMinutes int  `yaml:"default_sync_interval_minutes"`
	MaxRetries                 int  `yaml:"max_retries"`
	RetryBaseDelaySeconds      int  `yaml:"retry_base_delay_seconds"`
	AutoRegister               bool `yaml:"auto_register"`
	HistoryCapacity            int  `yaml:"history_capacity"`
}

// DefaultConfig returns the configuration with every scheduler default set.
func DefaultConfig() *Config {
	return &Config{
		Version: configVersion,
		Sync: SyncConfig{
			Enabled:                    true,
			CheckIntervalSeconds:       60,
			DefaultSyncIntervalMinutes: 60,
			MaxRetries:                 3,
			RetryBaseDelaySeconds:      30,
			AutoRegister:               true,
			HistoryCapacity:            50,
		},
	}
}

// CheckInterval, DefaultSyncInterval, RetryBaseDelay convert the config's
// integer fields into time.Duration for the scheduler/engine.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Sync.CheckIntervalSeconds) * time.Second
}

func (c *Config) DefaultSyncInterval() time.Duration {
	return time.Duration(c.Sync.DefaultSyncIntervalMinutes) * time.Minute
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Sync.RetryBaseDelaySeconds) * time.Second
}

// LoadConfig loads the config at configPath, or discovers one by walking
// up from the working directory, or falls back to defaults with a
// config-not-found error the caller may choose to ignore.
func LoadConfig(configPath string) (*Config, error) {
	resolved, err := resolvedConfigPath(configPath)
	if err != nil {
		return DefaultConfig(), errors.NewConfigError(
			"No configuration found",
			"Could not locate .reposync/config.yaml",
			"Run 'reposyncd init' to create one",
			err,
		)
	}

	data, err := os.ReadFile(resolved) //nolint:gosec // G304: path from our own resolution logic
	if err != nil {
		return DefaultConfig(), errors.NewConfigError(
			"Cannot read configuration",
			fmt.Sprintf("Failed to read %s", resolved),
			"Run 'reposyncd init' to create a configuration file",
			err,
		)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), errors.NewConfigError(
			"Invalid configuration",
			fmt.Sprintf("Failed to parse %s", resolved),
			"Check the YAML syntax of your configuration file",
			err,
		)
	}
	if cfg.Version == "" {
		cfg.Version = configVersion
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// findConfigFile walks up from the working directory looking for
// .reposync/config.yaml.
func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ".reposync", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .reposync/config.yaml found in this directory or any parent")
		}
		dir = parent
	}
}

// applyEnvOverrides layers REPOSYNC_* environment variables on top of cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPOSYNC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("REPOSYNC_CHECKOUT_DIR"); v != "" {
		cfg.CheckoutDir = v
	}
	if v := getEnvBool("REPOSYNC_SYNC_ENABLED"); v != nil {
		cfg.Sync.Enabled = *v
	}
	if v := getEnvInt("REPOSYNC_CHECK_INTERVAL_SECONDS"); v != nil {
		cfg.Sync.CheckIntervalSeconds = *v
	}
	if v := getEnvInt("REPOSYNC_DEFAULT_SYNC_INTERVAL_MINUTES"); v != nil {
		cfg.Sync.DefaultSyncIntervalMinutes = *v
	}
	if v := getEnvInt("REPOSYNC_MAX_RETRIES"); v != nil {
		cfg.Sync.MaxRetries = *v
	}
	if v := getEnvInt("REPOSYNC_RETRY_BASE_DELAY_SECONDS"); v != nil {
		cfg.Sync.RetryBaseDelaySeconds = *v
	}
	if v := getEnvBool("REPOSYNC_AUTO_REGISTER"); v != nil {
		cfg.Sync.AutoRegister = *v
	}
	if v := getEnvInt("REPOSYNC_HISTORY_CAPACITY"); v != nil {
		cfg.Sync.HistoryCapacity = *v
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string) *int {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func getEnvBool(key string) *bool {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
