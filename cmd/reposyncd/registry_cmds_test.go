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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/reposync/pkg/syncmeta"
)

func TestOwnerRepoFromURLHTTPS(t *testing.T) {
	owner, repo, err := ownerRepoFromURL("https://github.com/acme/widgets.git")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
}

func TestOwnerRepoFromURLSSH(t *testing.T) {
	owner, repo, err := ownerRepoFromURL("git@github.com:acme/widgets.git")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
}

func TestOwnerRepoFromURLMalformed(t *testing.T) {
	_, _, err := ownerRepoFromURL("not-a-url")
	assert.Error(t, err)
}

func TestParseKeyArg(t *testing.T) {
	key, err := parseKeyArg("github/acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, syncmeta.Key{RepoType: syncmeta.RepoTypeGitHub, Owner: "acme", Repo: "widgets"}, key)
}

func TestParseKeyArgUnknownType(t *testing.T) {
	_, err := parseKeyArg("svn/acme/widgets")
	assert.Error(t, err)
}

func TestParseKeyArgWrongShape(t *testing.T) {
	_, err := parseKeyArg("github/acme")
	assert.Error(t, err)
}
