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

// Package discovery implements ProjectDiscovery: scanning an external
// source for repositories that should be auto-registered at scheduler
// startup. The real wiki-cache this stands in for is out of scope; the
// contract and a directory-based implementation are what this package
// provides.
package discovery

import (
	"os"
	"path/filepath"

	"github.com/kraklabs/reposync/pkg/syncmeta"
)

// Candidate is one repository a Source believes should be registered.
type Candidate struct {
	RepoURL  string
	Owner    string
	Repo     string
	RepoType syncmeta.RepoType
}

// Source is the ProjectDiscovery contract: consulted once at startup when
// auto_register is enabled.
type Source interface {
	List() ([]Candidate, error)
}

// DirSource scans a root directory laid out as <repo_type>/<owner>/<repo>
// and yields one candidate per leaf directory that looks like a checkout
// (contains a .git entry or a remote.json marker file). Only the marker's
// presence counts: its contents are not read, and every candidate's
// RepoURL is derived from the repo type's default host plus owner/repo.
type DirSource struct {
	Root string
}

// NewDirSource returns a Source rooted at root.
func NewDirSource(root string) *DirSource {
	return &DirSource{Root: root}
}

func isKnownRepoType(s string) (syncmeta.RepoType, bool) {
	switch syncmeta.RepoType(s) {
	case syncmeta.RepoTypeGitHub, syncmeta.RepoTypeGitLab, syncmeta.RepoTypeBitbucket:
		return syncmeta.RepoType(s), true
	default:
		return "", false
	}
}

// List walks Root and returns every discovered candidate. A missing Root
// is not an error: it simply yields no candidates, matching a fresh
// install with nothing cached yet.
func (d *DirSource) List() ([]Candidate, error) {
	if _, err := os.Stat(d.Root); os.IsNotExist(err) {
		return nil, nil
	}

	repoTypeDirs, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, rtDir := range repoTypeDirs {
		if !rtDir.IsDir() {
			continue
		}
		repoType, ok := isKnownRepoType(rtDir.Name())
		if !ok {
			continue
		}
		ownerDirs, err := os.ReadDir(filepath.Join(d.Root, rtDir.Name()))
		if err != nil {
			continue
		}
		for _, ownerDir := range ownerDirs {
			if !ownerDir.IsDir() || isHidden(ownerDir.Name()) {
				continue
			}
			repoDirs, err := os.ReadDir(filepath.Join(d.Root, rtDir.Name(), ownerDir.Name()))
			if err != nil {
				continue
			}
			for _, repoDir := range repoDirs {
				if !repoDir.IsDir() || isHidden(repoDir.Name()) {
					continue
				}
				leaf := filepath.Join(d.Root, rtDir.Name(), ownerDir.Name(), repoDir.Name())
				if !looksLikeProject(leaf) {
					continue
				}
				candidates = append(candidates, Candidate{
					RepoURL:  defaultRepoURL(repoType, ownerDir.Name(), repoDir.Name()),
					Owner:    ownerDir.Name(),
					Repo:     repoDir.Name(),
					RepoType: repoType,
				})
			}
		}
	}
	return candidates, nil
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

func looksLikeProject(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "remote.json")); err == nil {
		return true
	}
	return false
}

func defaultRepoURL(repoType syncmeta.RepoType, owner, repo string) string {
	host := map[syncmeta.RepoType]string{
		syncmeta.RepoTypeGitHub:    "github.com",
		syncmeta.RepoTypeGitLab:    "gitlab.com",
		syncmeta.RepoTypeBitbucket: "bitbucket.org",
	}[repoType]
	return "https://" + host + "/" + owner + "/" + repo + ".git"
}
