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
	"context"
	"fmt"
	"os"

	"github.com/kraklabs/reposync/internal/errors"
	"github.com/kraklabs/reposync/pkg/clock"
	"github.com/kraklabs/reposync/pkg/gitprovider"
	"github.com/kraklabs/reposync/pkg/indexpipeline"
	"github.com/kraklabs/reposync/pkg/registry"
	"github.com/kraklabs/reposync/pkg/syncengine"
	"github.com/kraklabs/reposync/pkg/syncmeta"
)

// app bundles the components shared across every subcommand: the
// metadata store, the registry façade, and the engine a one-off CLI
// command or the "serve" scheduler runs syncs through.
type app struct {
	cfg      *Config
	store    *syncmeta.Store
	reg      *registry.Registry
	engine   *syncengine.Engine
	dataDir  string
	checkout string
}

// directDispatcher runs a sync inline, without a scheduler control loop.
// The CLI 'trigger' command forces one run through this rather than
// paying for a full Scheduler when nothing else will run concurrently.
type directDispatcher struct {
	engine *syncengine.Engine
}

func (d directDispatcher) Trigger(ctx context.Context, key syncmeta.Key) syncengine.SyncResult {
	return d.engine.Run(ctx, key, true, syncmeta.TriggeredByManual)
}

// openApp loads configuration and wires the store/registry/engine used by
// every subcommand. One-off commands get a Registry whose Dispatcher
// runs syncs inline; "serve" replaces it with a live *scheduler.Scheduler
// once it constructs one (see runServe).
func openApp(configPath string, globals GlobalFlags) *app {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		cfg = DefaultConfig()
	}

	dataDir, err := dataRootFromConfig(cfg, configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	checkoutDir, err := checkoutRootFromConfig(cfg, configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	historyCap := cfg.Sync.HistoryCapacity
	if historyCap <= 0 {
		historyCap = 50
	}
	store, err := syncmeta.NewStore(dataDir, historyCap)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError(
			"Cannot open metadata store",
			fmt.Sprintf("Failed to open %s", dataDir),
			"Check directory permissions or REPOSYNC_DATA_DIR",
			err,
		), globals.JSON)
	}

	clk := clock.Real{}
	git := gitprovider.NewExecutor()
	// The document-reading/embedding pipeline is an opaque external
	// collaborator from this daemon's point of view: it only needs a
	// document/embedding count back per sync, never the contents.
	pipeline := indexpipeline.NewMock(0, 0)

	engine := &syncengine.Engine{
		Store:        store,
		Git:          git,
		Pipeline:     pipeline,
		Clock:        clk,
		Config:       syncengine.Config{MaxRetries: cfg.Sync.MaxRetries, RetryBaseDelay: cfg.RetryBaseDelay()},
		CheckoutRoot: checkoutDir,
	}

	reg := &registry.Registry{
		Store:               store,
		Git:                 git,
		Clock:               clk,
		CheckoutRoot:        checkoutDir,
		DefaultSyncInterval: cfg.DefaultSyncInterval(),
	}

	reg.Dispatcher = directDispatcher{engine: engine}

	return &app{cfg: cfg, store: store, reg: reg, engine: engine, dataDir: dataDir, checkout: checkoutDir}
}

func parseKeyArg(arg string) (syncmeta.Key, error) {
	parts := splitN(arg, '/', 3)
	if len(parts) != 3 {
		return syncmeta.Key{}, fmt.Errorf("expected <repo_type>/<owner>/<repo>, got %q", arg)
	}
	repoType, ok := isKnownRepoType(parts[0])
	if !ok {
		return syncmeta.Key{}, fmt.Errorf("unknown repo type %q", parts[0])
	}
	return syncmeta.Key{RepoType: repoType, Owner: parts[1], Repo: parts[2]}, nil
}

func isKnownRepoType(s string) (syncmeta.RepoType, bool) {
	switch syncmeta.RepoType(s) {
	case syncmeta.RepoTypeGitHub, syncmeta.RepoTypeGitLab, syncmeta.RepoTypeBitbucket:
		return syncmeta.RepoType(s), true
	default:
		return "", false
	}
}

func splitN(s string, sep byte, n int) []string {
	var out []string
	start := 0
	for i := 0; i < len(s) && len(out) < n-1; i++ {
		if s[i] == sep {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func exitUsage(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
