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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".reposync", "config.yaml")

	cfg := DefaultConfig()
	cfg.Sync.MaxRetries = 7
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Sync.MaxRetries)
	assert.Equal(t, configVersion, loaded.Version)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("REPOSYNC_MAX_RETRIES", "9")
	t.Setenv("REPOSYNC_SYNC_ENABLED", "false")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	assert.Equal(t, 9, cfg.Sync.MaxRetries)
	assert.False(t, cfg.Sync.Enabled)
}

func TestLoadConfigMissingFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadConfig(filepath.Join(dir, "nope", "config.yaml"))
	assert.Error(t, err)
}

func TestFindConfigFileWalksUpDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".reposync"), 0o750))
	require.NoError(t, SaveConfig(DefaultConfig(), filepath.Join(root, ".reposync", "config.yaml")))

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	wd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(wd) }()
	require.NoError(t, os.Chdir(nested))

	found, err := findConfigFile()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".reposync", "config.yaml"), found)
}
