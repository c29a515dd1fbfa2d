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
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/reposync/internal/errors"
	"github.com/kraklabs/reposync/internal/ui"
	"github.com/kraklabs/reposync/pkg/registry"
)

// runHistory executes the 'history' CLI command: show a project's
// recent sync history, most-recent-first.
//
// Examples:
//
//	reposyncd history github/acme/widgets
//	reposyncd --json history github/acme/widgets --limit=5
func runHistory(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of entries to show (0 for unbounded)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: reposyncd history <repo_type>/<owner>/<repo> [--limit=N]\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	positional := fs.Args()
	if len(positional) != 1 {
		exitUsage("Usage: reposyncd history <repo_type>/<owner>/<repo> [--limit=N]")
	}
	key, err := parseKeyArg(positional[0])
	if err != nil {
		errors.FatalError(errors.NewInputError("Invalid project key", err.Error(), "", err), globals.JSON)
	}

	a := openApp(configPath, globals)
	entries, err := a.reg.History(key, *limit)
	if err != nil {
		if err == registry.ErrNotFound {
			errors.FatalError(errors.NewInputError("Project not found", key.String(), "Check 'reposyncd list'", err), globals.JSON)
		}
		errors.FatalError(errors.NewInternalError("Cannot read history", err.Error(), "", err), globals.JSON)
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(entries)
		return
	}

	if len(entries) == 0 {
		ui.Info("No sync history yet.")
		return
	}
	ui.Header(fmt.Sprintf("History: %s", key.String()))
	for _, e := range entries {
		line := fmt.Sprintf("  %s  %-10s  %6.2fs  %s",
			e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), statusLabel(e.Status), e.DurationSeconds, e.TriggeredBy)
		if e.ErrorMessage != "" {
			line += "  " + ui.Dim(e.ErrorMessage)
		}
		fmt.Println(line)
	}
}
