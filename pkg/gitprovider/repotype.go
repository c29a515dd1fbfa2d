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

package gitprovider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kraklabs/reposync/pkg/syncmeta"
)

// EmbedToken rewrites rawURL to carry token in the form each hosting
// provider expects for HTTPS authentication. The token never appears in
// logs or error text produced from the rewritten URL — see Redact.
func EmbedToken(repoType syncmeta.RepoType, rawURL, token string) (string, error) {
	if token == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse repo url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("unsupported scheme %q for token embedding", u.Scheme)
	}

	switch repoType {
	case syncmeta.RepoTypeGitHub:
		u.User = url.UserPassword("x-access-token", token)
	case syncmeta.RepoTypeGitLab:
		u.User = url.UserPassword("oauth2", token)
	case syncmeta.RepoTypeBitbucket:
		u.User = url.UserPassword("x-token-auth", token)
	default:
		return "", fmt.Errorf("unknown repo type %q", repoType)
	}
	return u.String(), nil
}

// redactionMarker replaces any occurrence of a known secret in text.
const redactionMarker = "***REDACTED***"

// Redact replaces every occurrence of token in text with a fixed marker,
// which also covers a token embedded in a rewritten URL. It is a no-op
// when token is empty.
func Redact(text, token string) string {
	if token == "" {
		return text
	}
	return strings.ReplaceAll(text, token, redactionMarker)
}

// directoryName returns the on-disk checkout directory name for a project
// key, dispatched on repo type only insofar as all three variants share
// the same owner/repo layout today; the dispatch point exists so a future
// provider with different naming rules has somewhere to plug in.
func directoryName(repoType syncmeta.RepoType, owner, repo string) string {
	switch repoType {
	case syncmeta.RepoTypeGitHub, syncmeta.RepoTypeGitLab, syncmeta.RepoTypeBitbucket:
		return owner + "_" + repo
	default:
		return owner + "_" + repo
	}
}

// DirectoryName is the exported form of directoryName, used by callers
// laying out checkout roots per project.
func DirectoryName(key syncmeta.Key) string {
	return directoryName(key.RepoType, key.Owner, key.Repo)
}
