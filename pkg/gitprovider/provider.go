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

// Package gitprovider implements all interactions with a working copy and
// its upstream remote: clone, fetch, pull, and changed-file diffing. Every
// operation returns an explicit error rather than raising; token values
// never appear in returned error text.
package gitprovider

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kraklabs/reposync/pkg/syncmeta"
)

// Provider is the capability SyncEngine depends on. The production
// implementation is Executor; tests supply a fake.
type Provider interface {
	Clone(ctx context.Context, repoURL, path string, repoType syncmeta.RepoType, token string) error
	FetchAndRemoteHead(ctx context.Context, path, token string) (string, error)
	LocalHead(ctx context.Context, path string) (string, error)
	Pull(ctx context.Context, path, token string) error
	ChangedFiles(ctx context.Context, path, oldRev, newRev string) ([]string, error)
}

// Default per-call timeouts.
const (
	FetchTimeout = 60 * time.Second
	CloneTimeout = 120 * time.Second
	PullTimeout  = 120 * time.Second
	DiffTimeout  = 60 * time.Second
)

// remoteCandidates is the ordered list of refs tried when resolving the
// default remote branch's head.
var remoteCandidates = []string{"origin/main", "origin/master", "origin/HEAD"}

// Executor is the production Provider: it shells out to the git binary,
// the same choice the rest of this corpus makes for git operations.
type Executor struct{}

// NewExecutor returns a ready-to-use Executor.
func NewExecutor() *Executor { return &Executor{} }

func (e *Executor) run(ctx context.Context, dir, token string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %s timed out or canceled: %w", args[0], ctx.Err())
		}
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr == "" {
			stderrStr = err.Error()
		}
		return "", fmt.Errorf("git %s failed: %s", args[0], Redact(stderrStr, token))
	}
	return stdout.String(), nil
}

// Clone performs a shallow, single-branch clone of repoURL into path. The
// token is embedded in the wire URL only; any error text is redacted.
func (e *Executor) Clone(ctx context.Context, repoURL, path string, repoType syncmeta.RepoType, token string) error {
	wireURL, err := EmbedToken(repoType, repoURL, token)
	if err != nil {
		return fmt.Errorf("git_clone_failed: %w", err)
	}
	if _, err := e.run(ctx, "", token, "clone", "--depth", "1", "--single-branch", wireURL, path); err != nil {
		return fmt.Errorf("git_clone_failed: %w", err)
	}
	return nil
}

// FetchAndRemoteHead fetches from origin and resolves the default remote
// branch's head, trying origin/main, origin/master, origin/HEAD in order.
func (e *Executor) FetchAndRemoteHead(ctx context.Context, path, token string) (string, error) {
	if _, err := e.run(ctx, path, token, "fetch", "origin"); err != nil {
		return "", fmt.Errorf("git_remote_unreachable: %w", err)
	}
	var lastErr error
	for _, ref := range remoteCandidates {
		out, err := e.run(ctx, path, token, "rev-parse", ref)
		if err == nil {
			return strings.TrimSpace(out), nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("git_remote_unreachable: no resolvable remote head: %w", lastErr)
}

// LocalHead returns the current HEAD commit hash of the checkout at path.
func (e *Executor) LocalHead(ctx context.Context, path string) (string, error) {
	out, err := e.run(ctx, path, "", "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git_remote_unreachable: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Pull fast-forwards the checkout at path from its upstream.
func (e *Executor) Pull(ctx context.Context, path, token string) error {
	if _, err := e.run(ctx, path, token, "pull", "--ff-only", "origin"); err != nil {
		return fmt.Errorf("git_pull_failed: %w", err)
	}
	return nil
}

// ChangedFiles returns the names of files that differ between oldRev and
// newRev in the checkout at path.
func (e *Executor) ChangedFiles(ctx context.Context, path, oldRev, newRev string) ([]string, error) {
	out, err := e.run(ctx, path, "", "diff", "--name-only", oldRev, newRev)
	if err != nil {
		return nil, fmt.Errorf("git_remote_unreachable: %w", err)
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}
