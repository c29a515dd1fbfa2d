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
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/reposync/internal/errors"
	"github.com/kraklabs/reposync/internal/ui"
	"github.com/kraklabs/reposync/pkg/registry"
)

// runTrigger executes the 'trigger' CLI command: force an immediate sync
// for one project, bypassing its schedule and any short-circuit on no
// upstream changes.
//
// Examples:
//
//	reposyncd trigger github/acme/widgets
func runTrigger(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("trigger", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: reposyncd trigger <repo_type>/<owner>/<repo>\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		exitUsage("Usage: reposyncd trigger <repo_type>/<owner>/<repo>")
	}
	key, err := parseKeyArg(positional[0])
	if err != nil {
		errors.FatalError(errors.NewInputError("Invalid project key", err.Error(), "", err), globals.JSON)
	}

	a := openApp(configPath, globals)
	flat, err := a.reg.Trigger(context.Background(), key)
	if err != nil {
		if err == registry.ErrNotFound {
			errors.FatalError(errors.NewInputError("Project not found", key.String(), "Check 'reposyncd list'", err), globals.JSON)
		}
		errors.FatalError(errors.NewInternalError("Trigger failed", err.Error(), "", err), globals.JSON)
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(flat)
		return
	}

	switch {
	case flat.Skipped:
		ui.Info(fmt.Sprintf("Skipped %s: %s", key.String(), flat.Reason))
	case flat.Success:
		ui.Success(fmt.Sprintf("Synced %s: %d documents, %d embeddings", key.String(), flat.DocumentCount, flat.EmbeddingCount))
	default:
		ui.Warningf("Failed %s: %s", key.String(), flat.Error)
	}
}

// runCheckUpdates executes the 'check-updates' CLI command: a read-only
// preview of whether upstream has changed, without mutating any state.
func runCheckUpdates(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("check-updates", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: reposyncd check-updates <repo_type>/<owner>/<repo>\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		exitUsage("Usage: reposyncd check-updates <repo_type>/<owner>/<repo>")
	}
	key, err := parseKeyArg(positional[0])
	if err != nil {
		errors.FatalError(errors.NewInputError("Invalid project key", err.Error(), "", err), globals.JSON)
	}

	a := openApp(configPath, globals)
	check, err := a.reg.CheckUpdates(context.Background(), key)
	if err != nil {
		if err == registry.ErrNotFound {
			errors.FatalError(errors.NewInputError("Project not found", key.String(), "Check 'reposyncd list'", err), globals.JSON)
		}
		errors.FatalError(errors.NewInternalError("Check failed", err.Error(), "", err), globals.JSON)
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(check)
		return
	}

	if check.HasUpdates {
		ui.Success(fmt.Sprintf("%s has upstream changes", key.String()))
	} else {
		ui.Info(fmt.Sprintf("%s is up to date", key.String()))
	}
	if check.Reason != "" {
		fmt.Printf("  %s\n", ui.Dim(check.Reason))
	}
}

// runResetRetries executes the 'reset-retries' CLI command: clear a
// failed project's retry count and make it immediately due.
func runResetRetries(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("reset-retries", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: reposyncd reset-retries <repo_type>/<owner>/<repo>\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		exitUsage("Usage: reposyncd reset-retries <repo_type>/<owner>/<repo>")
	}
	key, err := parseKeyArg(positional[0])
	if err != nil {
		errors.FatalError(errors.NewInputError("Invalid project key", err.Error(), "", err), globals.JSON)
	}

	a := openApp(configPath, globals)
	outward, err := a.reg.ResetRetries(key)
	if err != nil {
		if err == registry.ErrNotFound {
			errors.FatalError(errors.NewInputError("Project not found", key.String(), "Check 'reposyncd list'", err), globals.JSON)
		}
		errors.FatalError(errors.NewInternalError("Reset failed", err.Error(), "", err), globals.JSON)
	}
	printRecord(*outward, globals)
}
