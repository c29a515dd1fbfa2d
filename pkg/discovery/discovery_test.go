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

package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/reposync/pkg/syncmeta"
)

func TestDirSourceDiscoversGitCheckouts(t *testing.T) {
	root := t.TempDir()
	leaf := filepath.Join(root, "github", "alice", "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(leaf, ".git"), 0o755))

	src := NewDirSource(root)
	candidates, err := src.List()
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, syncmeta.RepoTypeGitHub, candidates[0].RepoType)
	assert.Equal(t, "alice", candidates[0].Owner)
	assert.Equal(t, "repo", candidates[0].Repo)
}

func TestDirSourceMissingRootYieldsNoCandidates(t *testing.T) {
	src := NewDirSource(filepath.Join(t.TempDir(), "does-not-exist"))
	candidates, err := src.List()
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestDirSourceIgnoresNonProjectDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "github", "alice", "not-a-repo"), 0o755))

	src := NewDirSource(root)
	candidates, err := src.List()
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
